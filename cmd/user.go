package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"membercrm/db"
	"membercrm/models"
	"membercrm/services"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	errUserExists   = errors.New("a user with that email already exists")
	errUserNotFound = errors.New("user not found")
)

type newUser struct {
	Email    string
	Name     string
	Role     string
	Password string
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage staff accounts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return connectDB()
		},
	}

	var in newUser
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer db.GetDB().Close()
			u, err := createUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("created %s (%s) role=%s id=%s\n", u.Name, u.Email, u.Role, u.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Email, "email", "", "login email (required)")
	create.Flags().StringVar(&in.Name, "name", "", "display name")
	create.Flags().StringVar(&in.Role, "role", models.RoleViewer, "ADMIN, EDITOR or VIEWER")
	create.Flags().StringVar(&in.Password, "password", "", "initial password, at least 8 characters (required)")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	var email, role string
	setRoleCmd := &cobra.Command{
		Use:   "set-role",
		Short: "Change the role of an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer db.GetDB().Close()
			if err := setRole(cmd.Context(), email, role); err != nil {
				return err
			}
			fmt.Printf("%s is now %s\n", strings.ToLower(strings.TrimSpace(email)), strings.ToUpper(role))
			return nil
		},
	}
	setRoleCmd.Flags().StringVar(&email, "email", "", "account email (required)")
	setRoleCmd.Flags().StringVar(&role, "role", "", "ADMIN, EDITOR or VIEWER (required)")
	_ = setRoleCmd.MarkFlagRequired("email")
	_ = setRoleCmd.MarkFlagRequired("role")

	cmd.AddCommand(create, setRoleCmd)
	return cmd
}

func createUser(ctx context.Context, in newUser) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return models.User{}, errors.New("email is required")
	}
	if !services.IsValidRole(in.Role) {
		return models.User{}, fmt.Errorf("unknown role %q", in.Role)
	}
	if len(in.Password) < 8 {
		return models.User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := models.User{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(in.Name),
		Email: email,
		Role:  strings.ToUpper(strings.TrimSpace(in.Role)),
	}
	err = db.GetDB().QueryRowContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, u.ID, u.Name, u.Email, string(hash), u.Role).Scan(&u.CreatedAt)
	if db.IsUniqueViolation(err) {
		return models.User{}, errUserExists
	}
	if err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func setRole(ctx context.Context, email, role string) error {
	if !services.IsValidRole(role) {
		return fmt.Errorf("unknown role %q", role)
	}
	res, err := db.GetDB().ExecContext(ctx, `UPDATE users SET role = $1 WHERE email = $2`,
		strings.ToUpper(strings.TrimSpace(role)), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errUserNotFound
	}
	return nil
}
