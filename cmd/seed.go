package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/assignment"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
	"github.com/frahmantamala/member-management/internal/user"
)

const defaultMemberRole = "Üye"

var (
	seedAdminPassword string
	seedAdminName     string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalog, the Admin and member roles and the system administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(".")
		if err != nil {
			return err
		}
		initLogger(cfg)

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		return seed(cmd.Context(), a)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password for a newly created system administrator (required on first run)")
	seedCmd.Flags().StringVar(&seedAdminName, "admin-name", "System Administrator", "display name of the system administrator")
}

func seed(ctx context.Context, a *app) error {
	res, err := a.Permissions.SyncFile(ctx, a.Config.RBAC.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	fmt.Printf("catalog: %d added, %d updated, %d unchanged, %d errors\n", res.Added, res.Updated, res.Unchanged, res.Errors)

	active, err := a.Permissions.ActiveCodes(ctx)
	if err != nil {
		return err
	}
	if missing := active.Missing(permission.Enforced); len(missing) > 0 {
		return fmt.Errorf("catalog lacks enforced codes %v", missing)
	}

	admin, err := ensureAdminRole(ctx, a)
	if err != nil {
		return err
	}
	if err := ensureMemberRole(ctx, a); err != nil {
		return err
	}
	return ensureSystemAdmin(ctx, a, admin)
}

func ensureAdminRole(ctx context.Context, a *app) (*role.Role, error) {
	admin, err := a.Roles.GetAdminRole(ctx)
	if err == nil {
		fmt.Println("Admin role exists:", admin.ID)
		return admin, nil
	}
	if !errors.Is(err, internal.ErrAdminRoleMissing) {
		return nil, err
	}

	admin, err = a.Roles.Create(ctx, role.CreateRoleRequest{
		Name:        role.AdminRoleName,
		Description: "Full access to every module",
		IsAdmin:     true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Admin role: %w", err)
	}
	fmt.Println("Seeded Admin role:", admin.ID)
	return admin, nil
}

func ensureMemberRole(ctx context.Context, a *app) error {
	defaults, err := a.Roles.GetDefaultRoles(ctx)
	if err != nil {
		return err
	}
	if len(defaults) > 0 {
		fmt.Println("default role exists:", defaults[0].Name)
		return nil
	}

	r, err := a.Roles.Create(ctx, role.CreateRoleRequest{
		Name:        defaultMemberRole,
		Description: "Default role attached to new members",
		IsDefault:   true,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create default role: %w", err)
	}
	fmt.Println("Seeded default role:", r.Name)
	return nil
}

func ensureSystemAdmin(ctx context.Context, a *app, admin *role.Role) error {
	email := a.Users.SystemAdminEmail()
	existing, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	if existing != nil {
		// re-running assignment repairs a system administrator that lost Admin
		res, err := a.Assignments.AssignRoles(ctx, existing.ID, existing.RoleIDs(), assignment.Options{SkipNotify: true})
		if err != nil {
			return fmt.Errorf("failed to verify system administrator roles: %w", err)
		}
		fmt.Println("system administrator exists:", email, "roles:", len(res.Roles))
		return nil
	}

	if seedAdminPassword == "" {
		return errors.New("--admin-password is required to create the system administrator")
	}
	u, err := a.Users.Create(ctx, user.CreateUserRequest{
		Email:    email,
		Name:     seedAdminName,
		Password: seedAdminPassword,
		RoleIDs:  []int64{admin.ID},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to create system administrator: %w", err)
	}
	fmt.Println("Seeded system administrator:", u.Email)
	return nil
}
