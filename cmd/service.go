package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/2003nayan/automated-github-push/internal/application"
)

var (
	serviceStart     bool
	serviceStop      bool
	serviceInstall   bool
	serviceUninstall bool
	serviceStatus    bool
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the backup daemon as a system service",
	Long: `Install, uninstall, start, stop, or check the status of the backup
daemon as a system service.

On Windows, this creates/manages a Windows Service.
On Linux/macOS, this creates/manages a systemd/launchd service.`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.Flags().BoolVar(&serviceStart, "start", false, "Start the service")
	serviceCmd.Flags().BoolVar(&serviceStop, "stop", false, "Stop the service")
	serviceCmd.Flags().BoolVar(&serviceInstall, "install", false, "Install as a system service")
	serviceCmd.Flags().BoolVar(&serviceUninstall, "uninstall", false, "Uninstall the system service")
	serviceCmd.Flags().BoolVar(&serviceStatus, "status", false, "Check service status")
}

// program implements service.Interface by running this binary's start
// command.
type program struct{}

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	go p.run()
	return nil
}

func (p *program) run() {
	self, err := os.Executable()
	if err != nil {
		_ = service.ConsoleLogger.Errorf("cannot locate executable: %v", err)
		return
	}

	args := []string{"start"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}

	cmd := exec.Command(self, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		_ = service.ConsoleLogger.Errorf("daemon exited with error: %v", err)
	}
}

func (p *program) Stop(s service.Service) error {
	// Stop should not block. Return with a few seconds.
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	flagCount := 0
	for _, set := range []bool{serviceStart, serviceStop, serviceInstall, serviceUninstall, serviceStatus} {
		if set {
			flagCount++
		}
	}

	if flagCount == 0 {
		return fmt.Errorf("please specify one of: --start, --stop, --install, --uninstall, --status")
	}
	if flagCount > 1 {
		return fmt.Errorf("please specify only one operation at a time")
	}

	svcArgs := []string{"start"}
	if cfgFile != "" {
		svcArgs = append(svcArgs, "--config", cfgFile)
	}

	svcConfig := &service.Config{
		Name:        application.AppName,
		DisplayName: "Code Backup Daemon",
		Description: "Watches local code folders and backs them up to GitHub",
		Arguments:   svcArgs,
	}

	s, err := service.New(&program{}, svcConfig)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	switch {
	case serviceInstall:
		if err := s.Install(); err != nil {
			return fmt.Errorf("failed to install service: %w", err)
		}
		fmt.Println("Service installed. Start it with:")
		fmt.Printf("  %s service --start\n", application.AppExeName)
		return nil

	case serviceUninstall:
		_ = s.Stop()
		if err := s.Uninstall(); err != nil {
			return fmt.Errorf("failed to uninstall service: %w", err)
		}
		fmt.Println("Service uninstalled.")
		return nil

	case serviceStart:
		if err := s.Start(); err != nil {
			return fmt.Errorf("failed to start service: %w", err)
		}
		fmt.Println("Service started.")
		return nil

	case serviceStop:
		if err := s.Stop(); err != nil {
			return fmt.Errorf("failed to stop service: %w", err)
		}
		fmt.Println("Service stopped.")
		return nil

	case serviceStatus:
		status, err := s.Status()
		if err != nil {
			return fmt.Errorf("failed to get service status: %w", err)
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service is running.")
		case service.StatusStopped:
			fmt.Println("Service is stopped.")
		default:
			fmt.Println("Service status unknown.")
		}
		return nil
	}

	return nil
}
