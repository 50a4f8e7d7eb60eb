package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/build"
	"git.home.luguber.info/inful/bookforge/internal/config"
)

// ReleaseCmd implements the 'release' command: full build of the complete
// manuscript followed by publishing the PDF to the fixed release tag.
type ReleaseCmd struct{}

func (cmd *ReleaseCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}

	runner, cleanup, err := assembleRunner(cfg, true)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := runner.Run(context.Background(), build.ModeRelease)
	if result != nil && !result.Succeeded() {
		fmt.Print(result.Log)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Release published: %s -> tag %q\n", result.ArtifactPath, cfg.Release.Tag)
	return nil
}
