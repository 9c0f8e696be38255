package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/erazemk/najdeno/internal/model"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role string
		op   Operation
		want bool
	}{
		{model.RoleStudent, ItemReportLost, true},
		{model.RoleStudent, ClaimSubmit, true},
		{model.RoleStudent, ClaimReadOwn, true},
		{model.RoleStudent, ClaimVerify, false},
		{model.RoleStudent, ClaimReadAll, false},
		{model.RoleStudent, ItemReturn, false},
		{model.RoleStudent, CampusManage, false},
		{model.RoleStaff, ClaimVerify, true},
		{model.RoleStaff, MatchApprove, true},
		{model.RoleStaff, ItemUpdateStatus, true},
		{model.RoleStaff, ItemReportFound, true},
		{model.RoleStaff, UserManage, false},
		{model.RoleAdmin, UserManage, true},
		{model.RoleAdmin, CampusManage, true},
		{model.RoleAdmin, ClaimVerify, true},
		{"", ItemRead, false},
		{"janitor", ItemRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.op), func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.op))
		})
	}
}

func TestEveryOperationHasAnOwner(t *testing.T) {
	for _, group := range [][]Operation{everyone, desk, admin} {
		for _, op := range group {
			assert.True(t, Allowed(model.RoleAdmin, op), "admin should be allowed %s", op)
		}
	}
}

func TestIsStaff(t *testing.T) {
	assert.False(t, IsStaff(model.RoleStudent))
	assert.True(t, IsStaff(model.RoleStaff))
	assert.True(t, IsStaff(model.RoleAdmin))
}
