package api_test

import (
	"context"

	"github.com/frahmantamala/gameserver-admin/api"
	"github.com/getkin/kin-openapi/openapi3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OpenAPI document", func() {
	var doc *openapi3.T

	BeforeEach(func() {
		var err error
		doc, err = openapi3.NewLoader().LoadFromData(api.OpenAPISpec)
		Expect(err).NotTo(HaveOccurred())
	})

	It("is a valid OpenAPI 3 document", func() {
		Expect(doc.Validate(context.Background())).To(Succeed())
	})

	It("describes the structured error body", func() {
		schema := doc.Components.Schemas["ErrorBody"]
		Expect(schema).NotTo(BeNil())
		inner := schema.Value.Properties["error"].Value
		Expect(inner.Required).To(ConsistOf("type", "code", "message"))
	})

	It("only lists the known notification events", func() {
		events := doc.Components.Schemas["EventName"].Value.Enum
		Expect(events).To(ConsistOf("all", "server_start", "server_stop", "server_restart", "backup_created", "player_join", "player_leave"))
	})
})
