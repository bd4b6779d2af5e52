package mockapi_test

import (
	"net/http"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/internal/mockapi"
)

var _ = Describe("Test Endpoints", func() {
	var api *mockapi.Server

	BeforeEach(func() {
		api = newAPI()
	})

	Describe("create", func() {
		// Given an empty server
		// When two tests are created
		// Then they should receive consecutive ids and server attributes
		It("assigns incrementing ids and fills server attributes", func() {
			w1, p1 := do(api, http.MethodPost, "/synthetics/v1/tests", map[string]any{"test": testDoc("first")})
			w2, p2 := do(api, http.MethodPost, "/synthetics/v1/tests", map[string]any{"test": testDoc("second")})

			Expect(w1.Code).To(Equal(http.StatusOK))
			Expect(w2.Code).To(Equal(http.StatusOK))

			first := resource(p1, "test")
			second := resource(p2, "test")
			id1, err := strconv.Atoi(first["id"].(string))
			Expect(err).NotTo(HaveOccurred())
			id2, err := strconv.Atoi(second["id"].(string))
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(Equal(id1 + 1))

			Expect(first["cdate"]).NotTo(BeEmpty())
			Expect(first["edate"]).NotTo(BeEmpty())
			Expect(first["createdBy"]).To(HaveKeyWithValue("email", "mock@netsonde.test"))
		})

		// Given a payload that smuggles in an id
		// When the test is created
		// Then the server should assign its own id
		It("ignores a client supplied id", func() {
			doc := testDoc("sneaky")
			doc["id"] = "999"

			_, payload := do(api, http.MethodPost, "/synthetics/v1/tests", map[string]any{"test": doc})

			Expect(resource(payload, "test")["id"]).NotTo(Equal("999"))
		})

		It("defaults a missing status to active", func() {
			doc := testDoc("statusless")
			delete(doc, "status")

			_, payload := do(api, http.MethodPost, "/synthetics/v1/tests", map[string]any{"test": doc})

			Expect(resource(payload, "test")["status"]).To(Equal("TEST_STATUS_ACTIVE"))
		})

		It("rejects a body without the test envelope", func() {
			w, payload := do(api, http.MethodPost, "/synthetics/v1/tests", map[string]any{"nope": true})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(payload)).To(ContainSubstring("missing 'test'"))
		})
	})

	Describe("get", func() {
		It("returns a stored test", func() {
			id := api.SeedTest(testDoc("lookup"))

			w, payload := do(api, http.MethodGet, "/synthetics/v1/tests/"+id, nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			test := resource(payload, "test")
			Expect(test["id"]).To(Equal(id))
			Expect(test["name"]).To(Equal("lookup"))
		})

		It("returns 404 for an unknown id", func() {
			w, payload := do(api, http.MethodGet, "/synthetics/v1/tests/42", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
			Expect(errorOf(payload)).To(Equal("test '42' not found"))
		})
	})

	Describe("list", func() {
		// Given regular and preset tests
		// When listing without the presets parameter
		// Then only regular tests should show up
		It("hides preset tests by default", func() {
			api.SeedTest(testDoc("mine"))
			api.SeedPresetTest(testDoc("platform"))

			_, payload := do(api, http.MethodGet, "/synthetics/v1/tests", nil)

			tests := listOf(payload, "tests")
			Expect(tests).To(HaveLen(1))
			Expect(tests[0].(map[string]any)["name"]).To(Equal("mine"))
		})

		It("includes preset tests with presets=true", func() {
			api.SeedTest(testDoc("mine"))
			api.SeedPresetTest(testDoc("platform"))

			_, payload := do(api, http.MethodGet, "/synthetics/v1/tests?presets=true", nil)

			Expect(listOf(payload, "tests")).To(HaveLen(2))
		})

		It("orders tests by id", func() {
			api.SeedTest(map[string]any{"id": "30", "name": "c", "type": "ip", "settings": map[string]any{}})
			api.SeedTest(map[string]any{"id": "4", "name": "a", "type": "ip", "settings": map[string]any{}})

			_, payload := do(api, http.MethodGet, "/synthetics/v1/tests", nil)

			tests := listOf(payload, "tests")
			Expect(tests[0].(map[string]any)["id"]).To(Equal("4"))
			Expect(tests[1].(map[string]any)["id"]).To(Equal("30"))
		})
	})

	Describe("update", func() {
		It("replaces the configuration and keeps the creation record", func() {
			id := api.SeedTest(testDoc("before"))
			stored, _ := api.Test(id)

			updated := testDoc("after")
			w, payload := do(api, http.MethodPut, "/synthetics/v1/tests/"+id, map[string]any{"test": updated})

			Expect(w.Code).To(Equal(http.StatusOK))
			test := resource(payload, "test")
			Expect(test["name"]).To(Equal("after"))
			Expect(test["id"]).To(Equal(id))
			Expect(test["cdate"]).To(Equal(stored["cdate"]))
			Expect(test["edate"]).NotTo(BeEmpty())
		})

		It("returns 404 for an unknown id", func() {
			w, _ := do(api, http.MethodPut, "/synthetics/v1/tests/42", map[string]any{"test": testDoc("x")})

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("patch", func() {
		It("applies only the masked fields", func() {
			id := api.SeedTest(testDoc("patchable"))

			body := map[string]any{
				"test": map[string]any{
					"name":     "should-not-apply",
					"settings": map[string]any{"period": 300},
				},
				"mask": "test.settings.period",
			}
			w, payload := do(api, http.MethodPatch, "/synthetics/v1/tests/"+id, body)

			Expect(w.Code).To(Equal(http.StatusOK))
			test := resource(payload, "test")
			Expect(test["name"]).To(Equal("patchable"))
			settings := test["settings"].(map[string]any)
			Expect(settings["period"]).To(BeNumerically("==", 300))
			Expect(settings["ip"]).NotTo(BeNil())
		})

		It("rejects a patch without a mask", func() {
			id := api.SeedTest(testDoc("patchable"))

			w, payload := do(api, http.MethodPatch, "/synthetics/v1/tests/"+id,
				map[string]any{"test": map[string]any{"name": "x"}})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(payload)).To(ContainSubstring("missing 'mask'"))
		})

		It("rejects a mask path absent from the body", func() {
			id := api.SeedTest(testDoc("patchable"))

			body := map[string]any{
				"test": map[string]any{"name": "x"},
				"mask": "test.settings.period",
			}
			w, payload := do(api, http.MethodPatch, "/synthetics/v1/tests/"+id, body)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(payload)).To(ContainSubstring("test.settings.period"))
		})
	})

	Describe("delete", func() {
		It("removes the test", func() {
			id := api.SeedTest(testDoc("doomed"))

			w, _ := do(api, http.MethodDelete, "/synthetics/v1/tests/"+id, nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			w, _ = do(api, http.MethodGet, "/synthetics/v1/tests/"+id, nil)
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 404 for an unknown id", func() {
			w, _ := do(api, http.MethodDelete, "/synthetics/v1/tests/42", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("status", func() {
		// Given a stored active test
		// When its status is set to paused
		// Then the stored test should reflect the change
		It("mutates the stored status", func() {
			id := api.SeedTest(testDoc("pausable"))

			w, _ := do(api, http.MethodPut, "/synthetics/v1/tests/"+id+"/status",
				map[string]any{"id": id, "status": "TEST_STATUS_PAUSED"})

			Expect(w.Code).To(Equal(http.StatusOK))
			stored, _ := api.Test(id)
			Expect(stored["status"]).To(Equal("TEST_STATUS_PAUSED"))
		})

		It("rejects a body id that does not match the path", func() {
			id := api.SeedTest(testDoc("pausable"))

			w, payload := do(api, http.MethodPut, "/synthetics/v1/tests/"+id+"/status",
				map[string]any{"id": "999", "status": "TEST_STATUS_PAUSED"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(payload)).To(ContainSubstring("does not match"))
		})

		It("rejects a body without a status", func() {
			id := api.SeedTest(testDoc("pausable"))

			w, payload := do(api, http.MethodPut, "/synthetics/v1/tests/"+id+"/status",
				map[string]any{"id": id})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(errorOf(payload)).To(ContainSubstring("missing 'status'"))
		})
	})
})
