package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cunum/cunum/envconfig"
	"github.com/cunum/cunum/logutil"
)

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))

	rootCmd := &cobra.Command{
		Use:           "cunum",
		Short:         "CUDA array binding utilities",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	devicesCmd := newDevicesCmd()
	benchCmd := newBenchCmd()
	sampleCmd := newSampleCmd()

	envVars := envconfig.AsMap()
	for _, cmd := range []*cobra.Command{benchCmd, sampleCmd} {
		appendEnvDocs(cmd, []envconfig.EnvVar{envVars["CUNUM_GENERATOR_SIZE"], envVars["CUNUM_SIM_DEVICES"]})
	}

	rootCmd.AddCommand(devicesCmd, benchCmd, sampleCmd)
	return rootCmd
}

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
