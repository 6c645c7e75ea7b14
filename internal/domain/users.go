package domain

import (
	"fmt"
	"strings"
)

type User struct {
	Username    string `json:"username"`
	Host        string `json:"host,omitempty"`
	Superuser   *bool  `json:"superuser,omitempty"`
	CreateDB    *bool  `json:"create_db,omitempty"`
	Replication *bool  `json:"replication,omitempty"`
	BypassRLS   *bool  `json:"bypass_rls,omitempty"`
}

type UserOperation string

const (
	UserCreate UserOperation = "create"
	UserDrop   UserOperation = "drop"
)

// ParseUserOperation maps the API operation names onto the two supported operations.
func ParseUserOperation(s string) (UserOperation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "create", "create user":
		return UserCreate, nil
	case "drop", "delete", "delete user", "delete users":
		return UserDrop, nil
	}
	return "", fmt.Errorf("unsupported user operation %q", s)
}

type UserRequest struct {
	Operation  UserOperation
	Username   string
	Password   string
	Privileges []string
}

// Statement is one SQL statement with its bind arguments.
type Statement struct {
	Query string
	Args  []any
}
