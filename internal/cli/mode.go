package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/aegisgraph/aegisgraph/internal/model"
)

var modeAddr string

func init() {
	rootCmd.AddCommand(modeCmd)
	modeCmd.AddCommand(modeSetCmd)
	modeCmd.PersistentFlags().StringVar(&modeAddr, "addr", "http://localhost:8000", "Address of the running server")
}

var modeCmd = &cobra.Command{
	Use:   "mode",
	Short: "Show the current security mode of a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := modeRequest(http.MethodGet, nil)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

var modeSetCmd = &cobra.Command{
	Use:   "set <NORMAL|STRICT|LOCKDOWN>",
	Short: "Override the security mode of a running server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := model.ParseMode(args[0])
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]string{"mode": string(mode)})
		body, err := modeRequest(http.MethodPut, payload)
		if err != nil {
			return err
		}
		fmt.Println(string(body))
		return nil
	},
}

func modeRequest(method string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, modeAddr+"/api/security-mode", reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server at %s: %w", modeAddr, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, body)
	}
	return body, nil
}
