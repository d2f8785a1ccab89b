package permission_test

import (
	"os"
	"path/filepath"

	"github.com/frahmantamala/member-management/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const sampleCatalog = `
version: 1
modules:
  - module: roller
    permissions:
      - code: ROLLER_GORUNTULEME
        name: Rolleri görüntüle
        action: view
      - code: ROLLER_EKLEME
        name: Rol ekle
        action: create
  - module: raporlar
    permissions:
      - code: RAPOR_EXPORT
        name: Rapor dışa aktar
        module: raporlar-export
        action: custom
`

var _ = Describe("Permission catalog", func() {
	Describe("ParseCatalog", func() {
		It("should flatten modules and inherit the group module", func() {
			defs, err := permission.ParseCatalog([]byte(sampleCatalog))

			Expect(err).NotTo(HaveOccurred())
			Expect(defs).To(HaveLen(3))
			Expect(defs[0].Code).To(Equal("ROLLER_GORUNTULEME"))
			Expect(defs[0].Module).To(Equal("roller"))
			Expect(defs[0].Action).To(Equal(permission.ActionView))
			Expect(defs[2].Module).To(Equal("raporlar-export"))
		})

		It("should reject an empty catalog", func() {
			_, err := permission.ParseCatalog([]byte("version: 1\nmodules: []\n"))
			Expect(err).To(HaveOccurred())
		})

		It("should reject malformed YAML", func() {
			_, err := permission.ParseCatalog([]byte("modules: [\n"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadCatalogFile", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "catalog")
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("should read the catalog from disk", func() {
			path := filepath.Join(dir, "permissions.yml")
			Expect(os.WriteFile(path, []byte(sampleCatalog), 0o600)).To(Succeed())

			defs, err := permission.LoadCatalogFile(path)

			Expect(err).NotTo(HaveOccurred())
			Expect(defs).To(HaveLen(3))
		})

		It("should fail for a missing file", func() {
			_, err := permission.LoadCatalogFile(filepath.Join(dir, "missing.yml"))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Definition.Validate", func() {
		valid := permission.Definition{Code: "KISI_V", Name: "Kişileri görüntüle", Module: "kisiler", Action: permission.ActionView}

		It("should accept a well formed definition", func() {
			Expect(valid.Validate()).To(Succeed())
		})

		DescribeTable("should reject",
			func(mutate func(d *permission.Definition)) {
				d := valid
				mutate(&d)
				Expect(d.Validate()).NotTo(Succeed())
			},
			Entry("a lowercase code", func(d *permission.Definition) { d.Code = "kisi_v" }),
			Entry("a code with dashes", func(d *permission.Definition) { d.Code = "KISI-V" }),
			Entry("an empty name", func(d *permission.Definition) { d.Name = "  " }),
			Entry("an empty module", func(d *permission.Definition) { d.Module = "" }),
			Entry("an unknown action", func(d *permission.Definition) { d.Action = "approve" }),
		)
	})

	Describe("CodeSet", func() {
		It("should report missing codes in input order", func() {
			set := permission.NewCodeSet("A", "B")
			Expect(set.Missing([]string{"C", "A", "D"})).To(Equal([]string{"C", "D"}))
		})

		It("should be case sensitive", func() {
			set := permission.NewCodeSet("KISI_V")
			Expect(set.Contains("kisi_v")).To(BeFalse())
		})

		It("should treat a nil set as empty", func() {
			var set permission.CodeSet
			Expect(set.Contains("KISI_V")).To(BeFalse())
			Expect(set.Sorted()).To(BeEmpty())
		})
	})
})
