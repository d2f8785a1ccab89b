package role_test

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/member-management/internal"
	userDatamodel "github.com/frahmantamala/member-management/internal/core/datamodel/user"
	"github.com/frahmantamala/member-management/internal/core/events"
	"github.com/frahmantamala/member-management/internal/role"
	rolePostgres "github.com/frahmantamala/member-management/internal/role/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Publish(ctx context.Context, evt events.Event) error {
	return l.PublishSync(ctx, evt)
}

func (l *eventLog) PublishSync(_ context.Context, evt events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, evt)
	return nil
}

func (l *eventLog) last() events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == 0 {
		return nil
	}
	return l.events[len(l.events)-1]
}

func ptr[T any](v T) *T {
	return &v
}

var _ = Describe("Role Service", func() {
	var (
		ctx     context.Context
		db      *gorm.DB
		bus     *eventLog
		service *role.Service
		admin   *role.Role
		member  *role.Role
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db = openDB()
		bus = &eventLog{}
		service = role.NewService(rolePostgres.NewRoleRepository(db), newCatalog(), bus, quietLogger())

		admin, err = service.Create(ctx, role.CreateRoleRequest{Name: role.AdminRoleName, IsAdmin: true}, nil)
		Expect(err).NotTo(HaveOccurred())
		member, err = service.Create(ctx, role.CreateRoleRequest{Name: "Üye", IsDefault: true, Permissions: []string{"KISI_V"}}, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Create", func() {
		It("should store the role with sorted unique permissions", func() {
			// When
			r, err := service.Create(ctx, role.CreateRoleRequest{
				Name:        "Editor",
				Permissions: []string{"ROLLER_EKLEME", "KISI_V", "ROLLER_EKLEME"},
			}, ptr(int64(7)))

			// Then
			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).To(BeNumerically(">", 0))
			Expect(r.IsActive).To(BeTrue())
			Expect(r.Permissions).To(Equal([]string{"KISI_V", "ROLLER_EKLEME"}))

			evt, ok := bus.last().(*events.RoleChangedEvent)
			Expect(ok).To(BeTrue())
			Expect(evt.EventType()).To(Equal(events.EventTypeRoleCreated))
			Expect(*evt.ActorID).To(Equal(int64(7)))
		})

		It("should reject codes missing from the catalog", func() {
			_, err := service.Create(ctx, role.CreateRoleRequest{Name: "Editor", Permissions: []string{"KISI_V", "NOPE"}}, nil)

			Expect(errors.Is(err, internal.ErrUnknownPermission)).To(BeTrue())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Details).To(Equal(map[string][]string{"codes": {"NOPE"}}))
		})

		It("should reject a duplicate name", func() {
			_, err := service.Create(ctx, role.CreateRoleRequest{Name: "Üye"}, nil)
			Expect(errors.Is(err, internal.ErrDuplicateName)).To(BeTrue())
		})

		It("should reject a second admin role", func() {
			_, err := service.Create(ctx, role.CreateRoleRequest{Name: "Root", IsAdmin: true}, nil)
			Expect(errors.Is(err, internal.ErrAdminRoleExists)).To(BeTrue())
		})

		It("should honour an explicit inactive flag", func() {
			r, err := service.Create(ctx, role.CreateRoleRequest{Name: "Arşiv", IsActive: ptr(false)}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.IsActive).To(BeFalse())
		})
	})

	Describe("Update", func() {
		It("should refuse to rename the Admin role", func() {
			_, err := service.Update(ctx, admin.ID, role.UpdateRoleRequest{Name: ptr("Yönetici")}, nil)

			Expect(errors.Is(err, internal.ErrProtectedRoleRename)).To(BeTrue())
			stored, _ := service.GetByID(ctx, admin.ID)
			Expect(stored.Name).To(Equal(role.AdminRoleName))
		})

		It("should allow other unique renames", func() {
			r, err := service.Update(ctx, member.ID, role.UpdateRoleRequest{Name: ptr("Member")}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Name).To(Equal("Member"))
		})

		It("should accept the Admin role's own name unchanged", func() {
			r, err := service.Update(ctx, admin.ID, role.UpdateRoleRequest{Name: ptr("Admin"), Description: ptr("Sistem yöneticisi")}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Description).To(Equal("Sistem yöneticisi"))
		})

		It("should reject renaming onto another role's name", func() {
			_, err := service.Update(ctx, member.ID, role.UpdateRoleRequest{Name: ptr("Admin")}, nil)
			Expect(errors.Is(err, internal.ErrDuplicateName)).To(BeTrue())
		})

		It("should refuse to drop the admin flag or deactivate Admin", func() {
			_, err := service.Update(ctx, admin.ID, role.UpdateRoleRequest{IsAdmin: ptr(false)}, nil)
			Expect(errors.Is(err, internal.ErrProtectedRoleUpdate)).To(BeTrue())

			_, err = service.Update(ctx, admin.ID, role.UpdateRoleRequest{IsActive: ptr(false)}, nil)
			Expect(errors.Is(err, internal.ErrProtectedRoleUpdate)).To(BeTrue())
		})

		It("should refuse to make a second role admin", func() {
			_, err := service.Update(ctx, member.ID, role.UpdateRoleRequest{IsAdmin: ptr(true)}, nil)
			Expect(errors.Is(err, internal.ErrAdminRoleExists)).To(BeTrue())
		})

		It("should keep permissions when the field is absent and clear them when empty", func() {
			r, err := service.Update(ctx, member.ID, role.UpdateRoleRequest{Description: ptr("x")}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(Equal([]string{"KISI_V"}))

			r, err = service.Update(ctx, member.ID, role.UpdateRoleRequest{Permissions: []string{}}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(BeEmpty())
		})

		It("should publish role.updated", func() {
			_, err := service.Update(ctx, member.ID, role.UpdateRoleRequest{Permissions: []string{"KISI_V", "KISI_C"}}, nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(bus.last().EventType()).To(Equal(events.EventTypeRoleUpdated))
		})

		It("should return not found for an unknown id", func() {
			_, err := service.Update(ctx, 999, role.UpdateRoleRequest{Name: ptr("x")}, nil)
			Expect(errors.Is(err, internal.ErrRoleNotFound)).To(BeTrue())
		})
	})

	Describe("RemovePermission", func() {
		It("should drop a single code", func() {
			r, err := service.RemovePermission(ctx, member.ID, "KISI_V", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.Permissions).To(BeEmpty())
		})

		It("should reject a code the role does not hold", func() {
			_, err := service.RemovePermission(ctx, member.ID, "KISI_C", nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Delete", func() {
		var editor *role.Role

		BeforeEach(func() {
			var err error
			editor, err = service.Create(ctx, role.CreateRoleRequest{Name: "Editor"}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should delete a role nobody holds", func() {
			Expect(service.Delete(ctx, editor.ID, nil)).To(Succeed())

			_, err := service.GetByID(ctx, editor.ID)
			Expect(errors.Is(err, internal.ErrRoleNotFound)).To(BeTrue())
			Expect(bus.last().EventType()).To(Equal(events.EventTypeRoleDeleted))
		})

		It("should refuse while users hold the role and report how many", func() {
			// Given
			for _, email := range []string{"a@example.com", "b@example.com"} {
				u := &userDatamodel.User{Email: email, Name: email, PasswordHash: "x", IsActive: true}
				Expect(db.Create(u).Error).To(Succeed())
				Expect(db.Create(&userDatamodel.UserRole{UserID: u.ID, RoleID: editor.ID}).Error).To(Succeed())
			}

			// When
			err := service.Delete(ctx, editor.ID, nil)

			// Then
			Expect(errors.Is(err, internal.ErrRoleInUse)).To(BeTrue())
			appErr, _ := internal.IsAppError(err)
			Expect(appErr.Message).To(ContainSubstring("2 user(s)"))

			_, err = service.GetByID(ctx, editor.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should protect admin and default roles", func() {
			Expect(errors.Is(service.Delete(ctx, admin.ID, nil), internal.ErrProtectedRoleDelete)).To(BeTrue())
			Expect(errors.Is(service.Delete(ctx, member.ID, nil), internal.ErrProtectedRoleDelete)).To(BeTrue())
		})
	})

	Describe("BulkDelete", func() {
		It("should isolate failures per role", func() {
			// Given
			editor, err := service.Create(ctx, role.CreateRoleRequest{Name: "Editor"}, nil)
			Expect(err).NotTo(HaveOccurred())

			// When
			result := service.BulkDelete(ctx, []int64{editor.ID, admin.ID, editor.ID}, nil)

			// Then
			Expect(result.Success).To(Equal(1))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Details).To(HaveLen(2))
			Expect(result.Details[1].RoleID).To(Equal(admin.ID))
			Expect(result.Details[1].Error).NotTo(BeEmpty())
		})
	})

	Describe("Queries", func() {
		It("should find the Admin role", func() {
			r, err := service.GetAdminRole(ctx)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.ID).To(Equal(admin.ID))
		})

		It("should report a missing Admin role", func() {
			empty := role.NewService(rolePostgres.NewRoleRepository(openDB()), newCatalog(), nil, quietLogger())

			_, err := empty.GetAdminRole(ctx)
			Expect(errors.Is(err, internal.ErrAdminRoleMissing)).To(BeTrue())
		})

		It("should list defaults and hide inactive roles unless asked", func() {
			_, err := service.Create(ctx, role.CreateRoleRequest{Name: "Arşiv", IsActive: ptr(false)}, nil)
			Expect(err).NotTo(HaveOccurred())

			defaults, err := service.GetDefaultRoles(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(defaults).To(HaveLen(1))
			Expect(defaults[0].ID).To(Equal(member.ID))

			active, _ := service.ListActive(ctx)
			all, _ := service.ListAll(ctx)
			Expect(active).To(HaveLen(2))
			Expect(all).To(HaveLen(3))
		})

		It("should return only the roles that exist", func() {
			roles, err := service.GetByIDs(ctx, []int64{admin.ID, 999, admin.ID})

			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(HaveLen(1))
			Expect(role.MissingIDs([]int64{admin.ID, 999}, roles)).To(Equal([]int64{999}))
		})
	})
})
