// Package policy maps roles to the operations they may perform. The API
// middleware checks the table once per route. Rules that also depend on the
// record or the request, such as a reporter updating their own lost item or
// only staff logging an item straight into storage, use IsStaff in the
// handler or the workflow.
package policy

import "github.com/erazemk/najdeno/internal/model"

// Operation names an action guarded by the policy table.
type Operation string

// Operations.
const (
	ItemRead         Operation = "item.read"
	ItemReportLost   Operation = "item.report_lost"
	ItemReportFound  Operation = "item.report_found"
	ItemUpdateStatus Operation = "item.update_status"
	ItemReturn       Operation = "item.return"
	MatchPropose     Operation = "match.propose"
	MatchApprove     Operation = "match.approve"
	ClaimSubmit      Operation = "claim.submit"
	ClaimReadOwn     Operation = "claim.read_own"
	ClaimReadAll     Operation = "claim.read_all"
	ClaimVerify      Operation = "claim.verify"
	NotificationRead Operation = "notification.read"
	CampusManage     Operation = "campus.manage"
	UserManage       Operation = "user.manage"
)

var everyone = []Operation{
	ItemRead, ItemReportLost, ItemReportFound, ClaimSubmit, ClaimReadOwn, NotificationRead,
}

var desk = []Operation{
	ItemUpdateStatus, ItemReturn, MatchPropose, MatchApprove, ClaimReadAll, ClaimVerify,
}

var admin = []Operation{CampusManage, UserManage}

var table = map[string]map[Operation]bool{
	model.RoleStudent: set(everyone),
	model.RoleStaff:   set(everyone, desk),
	model.RoleAdmin:   set(everyone, desk, admin),
}

func set(groups ...[]Operation) map[Operation]bool {
	m := make(map[Operation]bool)
	for _, g := range groups {
		for _, op := range g {
			m[op] = true
		}
	}
	return m
}

// Allowed reports whether role may perform op. Unknown roles may do nothing.
func Allowed(role string, op Operation) bool {
	return table[role][op]
}

// IsStaff reports whether role works the lost and found desk.
func IsStaff(role string) bool {
	return Allowed(role, ClaimReadAll)
}
