package apply

// AccessChanges aggregates the identity/access side effects of a batch.
type AccessChanges struct {
	UsersCreated     int `json:"users_created"`
	UsersDeactivated int `json:"users_deactivated"`
	AccessGranted    int `json:"access_granted"`
	AccessRevoked    int `json:"access_revoked"`
}

// ChangeError records why one change in a batch failed to apply.
type ChangeError struct {
	ChangeID string `json:"change_id"`
	Message  string `json:"message"`
}

// Result is the outcome of one apply batch. The batch is not globally
// atomic: each change succeeds or fails on its own.
type Result struct {
	ChangesApplied int           `json:"changes_applied"`
	ChangesFailed  int           `json:"changes_failed"`
	Errors         []ChangeError `json:"errors"`
	AccessChanges  AccessChanges `json:"access_changes"`
}

func (r *Result) fail(changeID, message string) {
	r.ChangesFailed++
	r.Errors = append(r.Errors, ChangeError{ChangeID: changeID, Message: message})
}
