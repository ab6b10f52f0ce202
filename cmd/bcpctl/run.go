package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"bcp-export/internal/service"

	"github.com/spf13/cobra"
)

var (
	runEnv           string
	runClientNames   []string
	runClientIDs     []int64
	runDatabaseNames []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an export flow and wait for it to finish",
}

var runLeadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Consolidate debtor leads and deliver them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClientFlow(cmd, func(s *service.FlowService) clientRunner { return s.RunLeads })
	},
}

var runEffortsCmd = &cobra.Command{
	Use:   "efforts",
	Short: "Export cleaned collection efforts and deliver them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClientFlow(cmd, func(s *service.FlowService) clientRunner { return s.RunEfforts })
	},
}

var runAmeyoCmd = &cobra.Command{
	Use:   "ameyo",
	Short: "Export call-center customer history and deliver it",
	Args:  cobra.NoArgs,
	RunE:  runAmeyo,
}

func init() {
	for _, c := range []*cobra.Command{runLeadsCmd, runEffortsCmd} {
		c.Flags().StringVar(&runEnv, "env", "", "environment name")
		c.Flags().StringSliceVar(&runClientNames, "client", nil, "client name, repeatable")
		c.Flags().Int64SliceVar(&runClientIDs, "client-id", nil, "client id, repeatable")
		_ = c.MarkFlagRequired("env")
	}
	runAmeyoCmd.Flags().StringSliceVar(&runDatabaseNames, "database", nil, "cms_ database, repeatable")
	_ = runAmeyoCmd.MarkFlagRequired("database")

	runCmd.AddCommand(runLeadsCmd, runEffortsCmd, runAmeyoCmd)
}

type clientRunner func(ctx context.Context, req service.ClientRequest) (*service.Run, error)

// runClientFlow runs the flow for every selected client in turn. A failed
// client does not stop the batch; the command fails when any did.
func runClientFlow(cmd *cobra.Command, pick func(*service.FlowService) clientRunner) error {
	ctx := cmd.Context()

	var reqs []service.ClientRequest
	for _, id := range runClientIDs {
		reqs = append(reqs, service.ClientRequest{Env: runEnv, ClientID: id})
	}
	for _, name := range runClientNames {
		reqs = append(reqs, service.ClientRequest{Env: runEnv, Client: name})
	}
	if len(reqs) == 0 {
		return errors.New("at least one --client or --client-id is required")
	}

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	runFlow := pick(a.Flows)
	var results []runResult
	for _, req := range reqs {
		run, err := runFlow(ctx, req)
		results = append(results, newRunResult(label(req), run, err))
	}
	return report(cmd.OutOrStdout(), results)
}

func runAmeyo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var results []runResult
	for _, db := range runDatabaseNames {
		run, err := a.Flows.RunAmeyo(ctx, service.AmeyoRequest{Database: db})
		results = append(results, newRunResult(db, run, err))
	}
	return report(cmd.OutOrStdout(), results)
}

type runResult struct {
	Target  string `json:"target"`
	RunID   string `json:"run_id,omitempty"`
	Status  string `json:"status"`
	File    string `json:"file,omitempty"`
	Rows    int    `json:"rows"`
	Message string `json:"message,omitempty"`
	failed  bool
}

func newRunResult(target string, run *service.Run, err error) runResult {
	res := runResult{Target: target, Status: string(service.RunFailed)}
	if run != nil {
		res.RunID = run.ID
		res.Status = string(run.Status)
		res.File = run.FileName
		res.Rows = run.Rows
		res.Message = run.Message
	}
	if err != nil {
		res.Message = err.Error()
		res.failed = !errors.Is(err, service.ErrNoData)
	}
	return res
}

func label(req service.ClientRequest) string {
	if req.ClientID != 0 {
		return req.Env + "/" + strconv.FormatInt(req.ClientID, 10)
	}
	return req.Env + "/" + req.Client
}

func report(out io.Writer, results []runResult) error {
	failed := 0
	for _, r := range results {
		if r.failed {
			failed++
		}
	}

	if jsonOutput {
		if err := printJSON(out, results); err != nil {
			return err
		}
	} else {
		w := newTabWriter(out)
		fmt.Fprintln(w, "TARGET\tSTATUS\tROWS\tFILE\tMESSAGE")
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.Target, r.Status, r.Rows, dash(r.File), dash(r.Message))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(results))
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
