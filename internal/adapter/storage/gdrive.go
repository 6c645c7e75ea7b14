package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/semmidev/custos/internal/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

// NewGDrive authenticates with a service account file, or with an OAuth
// client secret plus a refresh token obtained through the auth helper routes.
func NewGDrive(ctx context.Context, cfg *config.UploadTarget) (*GDriveStorage, error) {
	var opt option.ClientOption
	switch {
	case cfg.ClientSecretFile != "" && cfg.RefreshToken != "":
		oauthCfg, err := OAuthConfig(cfg.ClientSecretFile)
		if err != nil {
			return nil, err
		}
		ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		opt = option.WithTokenSource(ts)
	case cfg.CredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, fmt.Errorf("gdrive: credentials_file or client_secret_file with refresh_token is required")
	}

	service, err := drive.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

// OAuthConfig loads a Google OAuth client secret limited to files the app creates.
func OAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	meta := &drive.File{Name: remoteName}
	if g.folderID != "" {
		meta.Parents = []string{g.folderID}
	}

	if _, err := g.service.Files.Create(meta).Media(file).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) list(ctx context.Context, query string) ([]*drive.File, error) {
	var files []*drive.File
	err := g.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, createdTime)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	return files, err
}

func (g *GDriveStorage) folderQuery() string {
	return fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(g.folderID))
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	found, err := g.list(ctx, g.folderQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var files []string
	for _, f := range found {
		files = append(files, f.Name)
	}
	return files, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	query := fmt.Sprintf("%s and name='%s'", g.folderQuery(), escapeQuery(remoteName))
	found, err := g.list(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}
	if len(found) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	for _, f := range found {
		if err := g.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("failed to delete file: %w", err)
		}
	}
	return nil
}

func (g *GDriveStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	query := fmt.Sprintf("%s and createdTime < '%s'", g.folderQuery(), cutoffTime.UTC().Format(time.RFC3339))
	found, err := g.list(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list old files: %w", err)
	}

	var files []string
	for _, f := range found {
		files = append(files, f.Name)
	}
	return files, nil
}
