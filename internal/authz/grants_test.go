package authz_test

import (
	"github.com/frahmantamala/member-management/internal/authz"
	"github.com/frahmantamala/member-management/internal/permission"
	"github.com/frahmantamala/member-management/internal/role"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Grants", func() {
	active := permission.NewCodeSet("KISI_V", "KISI_C", "ROLLER_GORUNTULEME")

	editor := &role.Role{ID: 2, Name: "Editor", Permissions: []string{"KISI_V", "KISI_C"}, IsActive: true}
	viewer := &role.Role{ID: 3, Name: "Viewer", Permissions: []string{"ROLLER_GORUNTULEME"}, IsActive: true}
	admin := &role.Role{ID: 1, Name: role.AdminRoleName, IsAdmin: true, IsActive: true}

	It("should union the codes of every active role", func() {
		g := authz.Derive([]*role.Role{editor, viewer}, active)

		Expect(g.Admin).To(BeFalse())
		Expect(g.Codes()).To(Equal([]string{"KISI_C", "KISI_V", "ROLLER_GORUNTULEME"}))
	})

	It("should grant Editor KISI_V and nothing outside its roles", func() {
		roles := []*role.Role{editor}

		Expect(authz.IsGranted(roles, "KISI_V", active)).To(BeTrue())
		Expect(authz.IsGranted(roles, "ROLLER_GORUNTULEME", active)).To(BeFalse())
	})

	It("should let an admin hold any code, even an unknown one", func() {
		g := authz.Derive([]*role.Role{admin}, nil)

		Expect(g.Has("KISI_V")).To(BeTrue())
		Expect(g.Has("ANYTHING_AT_ALL")).To(BeTrue())
		Expect(g.Codes()).To(BeEmpty())
	})

	It("should keep the admin bypass on an inactive admin role", func() {
		inactiveAdmin := admin.Clone()
		inactiveAdmin.IsActive = false

		Expect(authz.IsGranted([]*role.Role{inactiveAdmin}, "KISI_V", active)).To(BeTrue())
	})

	It("should ignore inactive non-admin roles", func() {
		off := editor.Clone()
		off.IsActive = false

		Expect(authz.IsGranted([]*role.Role{off}, "KISI_V", active)).To(BeFalse())
	})

	It("should never grant codes that are inactive or not catalogued", func() {
		stale := &role.Role{ID: 9, Permissions: []string{"KISI_V", "GONE"}, IsActive: true}

		g := authz.Derive([]*role.Role{stale}, permission.NewCodeSet("KISI_C"))

		Expect(g.Has("KISI_V")).To(BeFalse())
		Expect(g.Has("GONE")).To(BeFalse())
	})

	It("should compare codes case sensitively", func() {
		Expect(authz.IsGranted([]*role.Role{editor}, "kisi_v", active)).To(BeFalse())
	})

	It("should grant nothing without roles", func() {
		Expect(authz.IsGranted(nil, "KISI_V", active)).To(BeFalse())
		Expect(authz.IsAdmin(nil)).To(BeFalse())
	})

	It("should rebuild the same answers from a permission view", func() {
		g := authz.Derive([]*role.Role{editor}, active)
		view := authz.ViewOf(5, g)

		rebuilt := authz.NewGrants(view.IsAdmin, view.Permissions)

		Expect(rebuilt.Has("KISI_V")).To(Equal(g.Has("KISI_V")))
		Expect(rebuilt.Has("ROLLER_GORUNTULEME")).To(Equal(g.Has("ROLLER_GORUNTULEME")))
		Expect(view.UserID).To(Equal(int64(5)))
	})
})
