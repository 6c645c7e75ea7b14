package database

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/semmidev/custos/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func pgProfile() domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Engine:   domain.EnginePostgres,
		Host:     "db.internal",
		Port:     5432,
		Database: "app",
		Username: "backup",
		Password: "p@ss:word",
		SSLMode:  "require",
	}
}

func mysqlProfile() domain.ConnectionProfile {
	return domain.ConnectionProfile{
		Engine:   domain.EngineMySQL,
		Host:     "mysql.internal",
		Port:     3306,
		Database: "shop",
		Username: "root",
		Password: "hunter2",
	}
}

func TestPostgreSQL(t *testing.T) {
	Convey("Given the PostgreSQL adapter", t, func() {
		pg := NewPostgreSQL(5 * time.Second)
		profile := pgProfile()

		Convey("DSN", func() {
			u, err := url.Parse(pg.DSN(profile))
			So(err, ShouldBeNil)

			So(u.Scheme, ShouldEqual, "postgres")
			So(u.Host, ShouldEqual, "db.internal:5432")
			So(u.Path, ShouldEqual, "/app")
			So(u.User.Username(), ShouldEqual, "backup")
			pw, _ := u.User.Password()
			So(pw, ShouldEqual, "p@ss:word")
			So(u.Query().Get("sslmode"), ShouldEqual, "require")
			So(u.Query().Get("connect_timeout"), ShouldEqual, "5")
		})

		Convey("DumpCommand", func() {
			Convey("When pg_dump is configured", func() {
				cmd, err := pg.DumpCommand(profile, domain.ToolPaths{PgDump: "/usr/bin/pg_dump"}, "/tmp/b/app_20260101_000000.sql")

				Convey("It should pass connection flags, plain format and the output file", func() {
					So(err, ShouldBeNil)
					So(cmd.Path, ShouldEqual, "/usr/bin/pg_dump")
					So(cmd.Args, ShouldContain, "--host=db.internal")
					So(cmd.Args, ShouldContain, "--port=5432")
					So(cmd.Args, ShouldContain, "--username=backup")
					So(cmd.Args, ShouldContain, "--format=plain")
					So(cmd.Args, ShouldContain, "--file=/tmp/b/app_20260101_000000.sql")
					So(cmd.Args[len(cmd.Args)-1], ShouldEqual, "app")
					So(cmd.OutputFile, ShouldBeEmpty)
				})

				Convey("The password should only travel through the environment", func() {
					So(cmd.Env, ShouldContain, "PGPASSWORD=p@ss:word")
					So(cmd.Env, ShouldContain, "PGSSLMODE=require")
					So(strings.Join(cmd.Args, " "), ShouldNotContainSubstring, "p@ss:word")
				})
			})

			Convey("When pg_dump is not configured", func() {
				_, err := pg.DumpCommand(profile, domain.ToolPaths{}, "/tmp/x.sql")

				Convey("It should return ToolNotConfiguredError", func() {
					So(errors.Is(err, domain.ErrToolNotConfigured), ShouldBeTrue)
					So(err.Error(), ShouldContainSubstring, "pg_dump")
				})
			})
		})

		Convey("RestoreCommand", func() {
			cmd, err := pg.RestoreCommand(profile, domain.ToolPaths{PgRestore: "/usr/bin/pg_restore"}, "/tmp/b/app.sql")

			So(err, ShouldBeNil)
			So(cmd.Path, ShouldEqual, "/usr/bin/pg_restore")
			So(cmd.Args, ShouldContain, "--dbname=app")
			So(cmd.Args[len(cmd.Args)-1], ShouldEqual, "/tmp/b/app.sql")
			So(cmd.Env, ShouldContain, "PGPASSWORD=p@ss:word")

			_, err = pg.RestoreCommand(profile, domain.ToolPaths{PgDump: "/usr/bin/pg_dump"}, "/tmp/b/app.sql")
			So(errors.Is(err, domain.ErrToolNotConfigured), ShouldBeTrue)
		})

		Convey("UserStatements", func() {
			Convey("When creating a user with privileges", func() {
				stmts, err := pg.UserStatements(domain.UserRequest{
					Operation:  domain.UserCreate,
					Username:   "reporter",
					Password:   "it's secret",
					Privileges: []string{"createdb", "LOGIN", " replication "},
				})

				Convey("It should quote the identifier and password literal", func() {
					So(err, ShouldBeNil)
					So(len(stmts), ShouldEqual, 3)
					So(stmts[0].Query, ShouldEqual, `CREATE USER "reporter" WITH PASSWORD 'it''s secret'`)
					So(stmts[1].Query, ShouldEqual, `ALTER USER "reporter" WITH CREATEDB`)
					So(stmts[2].Query, ShouldEqual, `ALTER USER "reporter" WITH REPLICATION`)
				})
			})

			Convey("When dropping a user", func() {
				stmts, err := pg.UserStatements(domain.UserRequest{Operation: domain.UserDrop, Username: "reporter"})
				So(err, ShouldBeNil)
				So(stmts[0].Query, ShouldEqual, `DROP USER "reporter"`)
			})

			Convey("When the privilege is not allowed", func() {
				_, err := pg.UserStatements(domain.UserRequest{Operation: domain.UserCreate, Username: "x", Privileges: []string{"SUPERUSER; DROP TABLE t"}})
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unsupported privilege")
			})

			Convey("When the username is malformed", func() {
				_, err := pg.UserStatements(domain.UserRequest{Operation: domain.UserDrop, Username: `bad"name`})
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "invalid username")
			})
		})

		Convey("ListUsers", func() {
			db, mock, err := sqlmock.New()
			So(err, ShouldBeNil)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("FROM pg_catalog.pg_user")).WillReturnRows(
				sqlmock.NewRows([]string{"usename", "usesuper", "usecreatedb", "userepl", "usebypassrls"}).
					AddRow("postgres", true, true, true, true).
					AddRow("reporter", false, true, false, false),
			)

			users, err := pg.ListUsers(context.Background(), db)

			So(err, ShouldBeNil)
			So(len(users), ShouldEqual, 2)
			So(users[0].Username, ShouldEqual, "postgres")
			So(*users[0].Superuser, ShouldBeTrue)
			So(*users[1].Superuser, ShouldBeFalse)
			So(*users[1].CreateDB, ShouldBeTrue)
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})
	})
}

func TestMySQL(t *testing.T) {
	Convey("Given the MySQL adapter", t, func() {
		my := NewMySQL(3 * time.Second)
		profile := mysqlProfile()

		Convey("DSN", func() {
			cfg, err := mysql.ParseDSN(my.DSN(profile))
			So(err, ShouldBeNil)

			So(cfg.Addr, ShouldEqual, "mysql.internal:3306")
			So(cfg.User, ShouldEqual, "root")
			So(cfg.Passwd, ShouldEqual, "hunter2")
			So(cfg.DBName, ShouldEqual, "shop")
			So(cfg.InterpolateParams, ShouldBeTrue)
			So(cfg.Timeout, ShouldEqual, 3*time.Second)
		})

		Convey("DumpCommand", func() {
			cmd, err := my.DumpCommand(profile, domain.ToolPaths{MySQLDump: "/usr/bin/mysqldump"}, "/tmp/b/shop.sql")

			Convey("It should redirect stdout to the artifact and keep the password off argv", func() {
				So(err, ShouldBeNil)
				So(cmd.Path, ShouldEqual, "/usr/bin/mysqldump")
				So(cmd.OutputFile, ShouldEqual, "/tmp/b/shop.sql")
				So(cmd.Args, ShouldContain, "--user=root")
				So(cmd.Args[len(cmd.Args)-1], ShouldEqual, "shop")
				So(cmd.Env, ShouldResemble, []string{"MYSQL_PWD=hunter2"})
				So(strings.Join(cmd.Args, " "), ShouldNotContainSubstring, "hunter2")
			})

			Convey("When mysqldump is not configured", func() {
				_, err := my.DumpCommand(profile, domain.ToolPaths{PgDump: "/usr/bin/pg_dump"}, "/tmp/b/shop.sql")
				So(errors.Is(err, domain.ErrToolNotConfigured), ShouldBeTrue)
			})
		})

		Convey("RestoreCommand", func() {
			cmd, err := my.RestoreCommand(profile, domain.ToolPaths{MySQL: "/usr/bin/mysql"}, "/tmp/b/shop.sql")

			So(err, ShouldBeNil)
			So(cmd.InputFile, ShouldEqual, "/tmp/b/shop.sql")
			So(cmd.OutputFile, ShouldBeEmpty)
			So(cmd.Env, ShouldContain, "MYSQL_PWD=hunter2")
		})

		Convey("UserStatements", func() {
			stmts, err := my.UserStatements(domain.UserRequest{
				Operation:  domain.UserCreate,
				Username:   "app_ro",
				Password:   "pw",
				Privileges: []string{"select", "show   view"},
			})

			So(err, ShouldBeNil)
			So(len(stmts), ShouldEqual, 3)
			So(stmts[0].Query, ShouldEqual, "CREATE USER ?@'localhost' IDENTIFIED BY ?")
			So(stmts[0].Args, ShouldResemble, []any{"app_ro", "pw"})
			So(stmts[1].Query, ShouldEqual, "GRANT SELECT ON *.* TO ?@'localhost'")
			So(stmts[2].Query, ShouldEqual, "GRANT SHOW VIEW ON *.* TO ?@'localhost'")

			drop, err := my.UserStatements(domain.UserRequest{Operation: domain.UserDrop, Username: "app_ro"})
			So(err, ShouldBeNil)
			So(drop[0].Query, ShouldEqual, "DROP USER ?@'localhost'")
		})

		Convey("ListUsers", func() {
			db, mock, err := sqlmock.New()
			So(err, ShouldBeNil)
			defer db.Close()

			mock.ExpectQuery(regexp.QuoteMeta("SELECT user, host FROM mysql.user")).WillReturnRows(
				sqlmock.NewRows([]string{"user", "host"}).AddRow("root", "localhost").AddRow("app_ro", "%"),
			)

			users, err := my.ListUsers(context.Background(), db)

			So(err, ShouldBeNil)
			So(users, ShouldResemble, []domain.User{{Username: "root", Host: "localhost"}, {Username: "app_ro", Host: "%"}})
			So(mock.ExpectationsWereMet(), ShouldBeNil)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		reg := Default(time.Second)

		Convey("It should resolve both engines", func() {
			pg, err := reg.Get(domain.EnginePostgres)
			So(err, ShouldBeNil)
			So(pg.Engine(), ShouldEqual, domain.EnginePostgres)

			So(reg.Engines(), ShouldResemble, []domain.Engine{domain.EngineMySQL, domain.EnginePostgres})
		})

		Convey("An unknown engine should be unsupported", func() {
			_, err := reg.Get(domain.Engine("Oracle"))
			So(errors.Is(err, domain.ErrUnsupportedEngine), ShouldBeTrue)

			_, err = reg.Open(context.Background(), domain.ConnectionProfile{Engine: "Oracle"})
			So(errors.Is(err, domain.ErrUnsupportedEngine), ShouldBeTrue)
		})
	})
}
