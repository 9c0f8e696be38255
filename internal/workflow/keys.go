package workflow

import "fmt"

// Cache keys. Each mutation lists the keys it invalidates next to the write.

func foundKey(id int64) string { return fmt.Sprintf("found:%d", id) }

func lostKey(id int64) string { return fmt.Sprintf("lost:%d", id) }

func claimKey(id int64) string { return fmt.Sprintf("claim:%d", id) }

func claimsOfFoundKey(id int64) string { return fmt.Sprintf("claims:found:%d", id) }

func matchesOfFoundKey(id int64) string { return fmt.Sprintf("matches:found:%d", id) }
