package utils

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// BoolPrompt runs a yes/no prompt, treating an interrupt as an abort of the
// whole command.
func BoolPrompt(prompt *promptui.Prompt) bool {
	_, err := prompt.Run()
	if err != nil {
		if err.Error() == "^C" {
			fmt.Println("Aborting")
			os.Exit(1)
		}
		return false
	}
	return true
}
