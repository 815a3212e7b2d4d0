// Package aegisgraph provides in-process access to the gated medical
// records pipeline for Go services. Every question runs through intent
// classification, relationship authorization, and threat screening
// before a response is generated; repeated refusals tighten the
// security posture automatically.
//
// Usage:
//
//	ag, err := aegisgraph.New(ctx, aegisgraph.WithConfigPath("/etc/aegisgraph/config.yaml"))
//	out := ag.Ask(ctx, aegisgraph.Request{
//	    UserID:    "u1",
//	    Role:      "attending",
//	    DoctorID:  "D1",
//	    PatientID: "P101",
//	    Message:   "What medications is this patient on?",
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/aegisgraph/aegisgraph/sdk/go/aegisgraph.
package aegisgraph
