package commands

import (
	"fmt"

	"git.home.luguber.info/inful/bookforge/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (cmd *InitCmd) Run(_ *Global, root *CLI) error {
	fmt.Printf("Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, cmd.Force); err != nil {
		return err
	}
	fmt.Println("Initialized successfully")
	return nil
}
