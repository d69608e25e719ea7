package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для управления executions.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "execution",
		Aliases: []string{"exec"},
		Short:   "Manage executions",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionSubmitCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionStepsCmd(clientFn, outputFn),
		newExecutionReportsCmd(clientFn, outputFn),
		newExecutionResultsCmd(clientFn, outputFn),
		newExecutionDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions()
			if err != nil {
				return err
			}

			headers := []string{"ID", "PROCESS_TYPE", "CASE_ID", "STATUS", "SCHEDULED"}
			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = []string{e.ID, e.ProcessType, e.CaseID, e.Status, e.ScheduledAt}
			}

			out.Print(headers, rows, executions)
			return nil
		},
	}
}

func newExecutionSubmitCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var configFile string
	var configJSON string

	cmd := &cobra.Command{
		Use:   "submit PROCESS_TYPE",
		Short: "Submit a new execution",
		Long: `Submit a new execution of the given process type.

The process config is passed as JSON via --config or --config-file:

  gridflow execution submit LOAD_FLOW --config '{"case_id":"...","parameters_id":"..."}'
  gridflow execution submit SECURITY_ANALYSIS --config-file sa.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			config, err := readConfig(configJSON, configFile)
			if err != nil {
				return err
			}

			execution, err := client.CreateExecution(args[0], config)
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution accepted: %s", execution.ID))
			out.Print(
				[]string{"ID", "PROCESS_TYPE", "CASE_ID", "STATUS", "SCHEDULED"},
				[][]string{{execution.ID, execution.ProcessType, execution.CaseID, execution.Status, execution.ScheduledAt}},
				execution,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&configJSON, "config", "", "Process config as inline JSON")
	cmd.Flags().StringVar(&configFile, "config-file", "", "Path to a JSON file with the process config")

	return cmd
}

// readConfig читает конфигурацию процесса из флага или файла.
func readConfig(inline, file string) (json.RawMessage, error) {
	if inline != "" && file != "" {
		return nil, fmt.Errorf("--config and --config-file are mutually exclusive")
	}

	var data []byte
	switch {
	case inline != "":
		data = []byte(inline)
	case file != "":
		var err error
		data, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("either --config or --config-file is required")
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("config is not valid JSON")
	}
	return json.RawMessage(data), nil
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show execution details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			execution, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "PROCESS_TYPE", "CASE_ID", "STATUS", "ENV", "SCHEDULED", "COMPLETED"},
				[][]string{{
					execution.ID,
					execution.ProcessType,
					execution.CaseID,
					execution.Status,
					execution.EnvName,
					execution.ScheduledAt,
					execution.CompletedAt,
				}},
				execution,
			)
			return nil
		},
	}
}

func newExecutionStepsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "steps ID",
		Short: "List execution steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			steps, err := client.ListSteps(args[0])
			if err != nil {
				return err
			}

			headers := []string{"ORDER", "TYPE", "STATUS", "RESULT", "ERROR"}
			rows := make([][]string, len(steps))
			for i, s := range steps {
				result := ""
				if s.Result != nil {
					result = s.Result.ResultID
				}
				rows[i] = []string{strconv.Itoa(s.Order), s.Type, s.Status, result, s.Error}
			}

			out.Print(headers, rows, steps)
			return nil
		},
	}
}

func newExecutionReportsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "reports ID",
		Short: "Show execution reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			reports, err := client.ListReports(args[0])
			if err != nil {
				return err
			}

			// Дерево отчёта осмысленно только как JSON
			out.JSON(reports)
			return nil
		},
	}
}

func newExecutionResultsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "results ID",
		Short: "List execution results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			results, err := client.ListResults(args[0])
			if err != nil {
				return err
			}

			headers := []string{"STEP_TYPE", "RESULT_ID", "KIND", "SIZE"}
			rows := make([][]string, len(results))
			for i, r := range results {
				rows[i] = []string{r.StepType, r.ResultID, r.Kind, strconv.Itoa(len(r.Data))}
			}

			out.Print(headers, rows, results)
			return nil
		},
	}
}

func newExecutionDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a finished execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteExecution(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Execution deleted: %s", args[0]))
			return nil
		},
	}
}
