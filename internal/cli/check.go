package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

var (
	checkDoc     string
	checkPatient string
	checkRole    string
	checkMessage string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkDoc, "doc", "", "Doctor identifier")
	checkCmd.Flags().StringVar(&checkPatient, "patient", "", "Patient identifier")
	checkCmd.Flags().StringVar(&checkRole, "role", "", "Clinical role")
	checkCmd.Flags().StringVar(&checkMessage, "message", "", "Message text, checked for emergency markers")
	checkCmd.MarkFlagRequired("doc")
	checkCmd.MarkFlagRequired("patient")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether a doctor may access a patient's records (dry-run)",
	Long:  "Runs the authorization check against the graph store without classifying, screening, or generating anything. No refusal event is recorded.",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return fmt.Errorf("failed to assemble service: %w", err)
	}
	defer a.Close()

	policy, err := a.oracle.Check(ctx, model.Request{
		DoctorID:  checkDoc,
		PatientID: checkPatient,
		Role:      checkRole,
		Message:   checkMessage,
	}, model.IntentDecision{NeedsPatientContext: true})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}

	out, _ := json.MarshalIndent(policy, "", "  ")
	fmt.Println(string(out))
	return nil
}
