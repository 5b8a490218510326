package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventSubmissionCreated.Category())
	assert.Equal(t, CategoryCompliance, EventSubmissionDeleted.Category())
	assert.Equal(t, CategorySecurity, EventStaticTokenUsed.Category())
	assert.Equal(t, CategorySecurity, EventAdminAccessDenied.Category())
	assert.Equal(t, CategoryOperations, EventSubmissionExported.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("something_else").Category())
}
