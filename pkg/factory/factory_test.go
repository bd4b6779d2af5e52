package factory_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/factory"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("Factory.Create", func() {
	var (
		ctx  context.Context
		inv  *fakeInventory
		f    *factory.Factory
		errs *failures
	)

	BeforeEach(func() {
		ctx = context.Background()
		inv = &fakeInventory{agents: cannedAgents()}
		f = factory.New()
		errs = &failures{}
	})

	It("rejects a document without mandatory sections", func() {
		test := f.Create(ctx, inv, "cfg1", map[string]any{}, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1 - Mandatory sections missing in configuration: test, agents"))
	})

	It("names each missing section", func() {
		doc := map[string]any{"test": map[string]any{"type": "mesh"}}
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1 - Mandatory sections missing in configuration: agents"))
	})

	It("rejects a scalar test section", func() {
		doc := map[string]any{"test": "mesh", "agents": useList("101")}
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1 - 'test' section must be a mapping"))
	})

	It("requires a test type", func() {
		doc := testDoc(map[string]any{"name": "t1"}, nil, useList("101"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1 - No 'test.type' in configuration"))
	})

	It("lists the supported types for an unknown type", func() {
		doc := testDoc(map[string]any{"type": "bogus"}, nil, useList("101"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1 - Unsupported test type: bogus (supported types: " +
				"agent, dns, dns_grid, flow, hostname, ip, mesh, network_grid, page_load, url)"))
	})

	It("expands the default name template", func() {
		doc := testDoc(map[string]any{"type": "mesh"}, nil, useList("101", "102"))
		test := f.Create(ctx, inv, "mycfg", doc, errs.report)
		Expect(errs.msgs).To(BeEmpty())
		Expect(test).NotTo(BeNil())
		host, _ := os.Hostname()
		Expect(test.Base().Name).To(HavePrefix("__auto:mycfg:" + host + ":"))
	})

	It("expands placeholders in an explicit name template", func() {
		doc := testDoc(map[string]any{"type": "mesh", "name": "probe-{config_name}"},
			nil, useList("101"))
		test := f.Create(ctx, inv, "mycfg", doc, errs.report)
		Expect(errs.msgs).To(BeEmpty())
		Expect(test.Base().Name).To(Equal("probe-mycfg"))
	})

	It("rejects unknown name template keywords with type context", func() {
		doc := testDoc(map[string]any{"type": "mesh", "name": "x-{bogus}"},
			nil, useList("101"))
		test := f.Create(ctx, inv, "mycfg", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: mycfg, type: mesh - " +
				"Test name template (x-{bogus}) contains unsupported keyword 'bogus'"))
	})

	It("requires a targets section for target-based types", func() {
		doc := testDoc(map[string]any{"type": "ip", "name": "t1"}, nil, useList("101"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1, name: t1 - " +
				"Required 'targets' section is missing in configuration"))
	})

	It("rejects a scalar targets section", func() {
		doc := map[string]any{
			"test":    map[string]any{"type": "ip", "name": "t1"},
			"targets": "10.0.0.1",
			"agents":  useList("101"),
		}
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1, name: t1 - 'targets' section must be a mapping"))
	})

	It("reports an empty target resolution", func() {
		doc := testDoc(map[string]any{"type": "flow", "name": "t1",
			"target_type": "asn", "direction": "dst", "inet_direction": "dst"},
			map[string]any{"use": []any{}}, useList("101"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1, name: t1 - No targets matched test configuration"))
	})

	It("ignores a targets section on mesh tests", func() {
		doc := testDoc(map[string]any{"type": "mesh", "name": "t1"},
			useList("10.0.0.1"), useList("101", "102"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(errs.msgs).To(BeEmpty())
		Expect(test).NotTo(BeNil())
		Expect(test.Base().Type).To(Equal(synthetics.TestTypeMesh))
	})

	It("rejects a scalar agents section", func() {
		doc := map[string]any{
			"test":   map[string]any{"type": "mesh", "name": "t1"},
			"agents": "101",
		}
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1, name: t1 - 'agents' section must be a mapping"))
	})

	It("reports an empty agent resolution", func() {
		doc := testDoc(map[string]any{"type": "mesh", "name": "t1"},
			nil, map[string]any{"use": []any{}})
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Failed to create test: cfg file: cfg1, name: t1 - No agents matched configuration"))
	})

	It("builds a network grid test end to end", func() {
		doc := testDoc(map[string]any{"type": "network_grid", "name": "grid-1"},
			useList("10.0.0.2", "10.0.0.1"), useList("102", "101"))
		test := f.Create(ctx, inv, "cfg1", doc, errs.report)
		Expect(errs.msgs).To(BeEmpty())
		Expect(test).NotTo(BeNil())

		base := test.Base()
		Expect(base.Type).To(Equal(synthetics.TestTypeNetworkGrid))
		Expect(base.Name).To(Equal("grid-1"))
		Expect(test.Base().Targets()).To(Equal([]string{"10.0.0.1", "10.0.0.2"}))
		common := base.Settings.Common()
		Expect(common.AgentIDs).To(Equal([]string{"102", "101"}))
		Expect(common.Period).To(Equal(synthetics.DefaultPeriod))
		Expect(base.Deployed()).To(BeFalse())
	})
})

var _ = Describe("Factory.LoadTest", func() {
	var (
		ctx  context.Context
		inv  *fakeInventory
		f    *factory.Factory
		errs *failures
	)

	BeforeEach(func() {
		ctx = context.Background()
		inv = &fakeInventory{agents: cannedAgents()}
		f = factory.New()
		errs = &failures{}
	})

	It("reports a missing file", func() {
		test := f.LoadTest(ctx, inv, "/no/such/place.yaml", errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Test configuration file '/no/such/place.yaml' does not exist"))
	})

	It("rejects a directory", func() {
		dir := GinkgoT().TempDir()
		test := f.LoadTest(ctx, inv, dir, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(ConsistOf(
			"Test configuration '" + dir + "' is not a file"))
	})

	It("builds a test from a YAML file using the file stem as config name", func() {
		doc := strings.Join([]string{
			"test:",
			"  type: mesh",
			"agents:",
			"  use:",
			"    - 101",
			"    - 102",
		}, "\n")
		path := filepath.Join(GinkgoT().TempDir(), "mesh-probe.yaml")
		Expect(os.WriteFile(path, []byte(doc), 0o600)).To(Succeed())

		test := f.LoadTest(ctx, inv, path, errs.report)
		Expect(errs.msgs).To(BeEmpty())
		Expect(test).NotTo(BeNil())
		Expect(test.Base().Name).To(HavePrefix("__auto:mesh-probe:"))
		Expect(test.Base().Settings.Common().AgentIDs).To(Equal([]string{"101", "102"}))
	})

	It("reports unparsable YAML", func() {
		path := filepath.Join(GinkgoT().TempDir(), "broken.yaml")
		Expect(os.WriteFile(path, []byte("test: [unclosed"), 0o600)).To(Succeed())

		test := f.LoadTest(ctx, inv, path, errs.report)
		Expect(test).To(BeNil())
		Expect(errs.msgs).To(HaveLen(1))
		Expect(errs.msgs[0]).To(HavePrefix("Failed to load test config: "))
	})
})

var _ = Describe("ConfigName", func() {
	It("strips the directory and extension", func() {
		Expect(factory.ConfigName("/etc/probes/dns-snap.yaml")).To(Equal("dns-snap"))
		Expect(factory.ConfigName("bare")).To(Equal("bare"))
	})
})

var _ = Describe("SupportedConfigTypes", func() {
	It("lists the buildable types sorted", func() {
		Expect(factory.SupportedConfigTypes()).To(Equal([]string{
			"agent", "dns", "dns_grid", "flow", "hostname", "ip", "mesh",
			"network_grid", "page_load", "url",
		}))
	})
})
