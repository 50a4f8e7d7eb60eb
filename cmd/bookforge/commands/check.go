package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
)

// CheckCmd implements the 'check' command: a fast compile of the partial
// manuscript that never touches the release channel.
type CheckCmd struct {
	ShowLog bool `help:"Print the engine log even when the build succeeds"`
}

func (cmd *CheckCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	runner, cleanup, err := assembleRunner(cfg, false)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Run(context.Background(), build.ModeCheck)
	if result != nil && (cmd.ShowLog || !result.Succeeded()) {
		fmt.Print(result.Log)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Check build succeeded: %s\n", result.ArtifactPath)
	return nil
}
