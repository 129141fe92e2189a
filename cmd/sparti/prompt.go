package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/aretw0/sparti/pkg/editor"
	"github.com/aretw0/sparti/pkg/schema"
)

// errAborted is returned when the user interrupts a prompt.
var errAborted = errors.New("aborted")

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

// confirm asks a yes/no question. Interrupts and errors count as no.
func confirm(msg string) bool {
	var ok bool
	if err := survey.AskOne(&survey.Confirm{Message: msg}, &ok); err != nil {
		return false
	}
	return ok
}

// confirmer approves destructive structural edits interactively.
var confirmer = editor.ConfirmFunc(func(action string) bool {
	return confirm(action)
})

func askInput(msg, def string, validate func(string) error) (string, error) {
	var out string
	var opts []survey.AskOpt
	if validate != nil {
		opts = append(opts, survey.WithValidator(func(ans any) error {
			s, _ := ans.(string)
			return validate(s)
		}))
	}
	err := survey.AskOne(&survey.Input{Message: msg, Default: def}, &out, opts...)
	return out, translateSurveyErr(err)
}

func askMultiline(msg, def string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Multiline{Message: msg, Default: def}, &out)
	return out, translateSurveyErr(err)
}

// askEditor opens $EDITOR (or the platform default) seeded with text.
func askEditor(msg, text string) (string, error) {
	var out string
	err := survey.AskOne(&survey.Editor{
		Message:       msg,
		Default:       text,
		AppendDefault: true,
		HideDefault:   true,
		FileName:      "*.json",
	}, &out)
	return out, translateSurveyErr(err)
}

func askBool(msg string, def bool) (bool, error) {
	var out bool
	err := survey.AskOne(&survey.Confirm{Message: msg, Default: def}, &out)
	return out, translateSurveyErr(err)
}

// askSelect returns the index of the chosen option.
func askSelect(msg string, options []string) (int, error) {
	var out int
	err := survey.AskOne(&survey.Select{Message: msg, Options: options, PageSize: 15}, &out)
	return out, translateSurveyErr(err)
}

func askKind(msg string) (schema.Kind, error) {
	kinds := schema.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	i, err := askSelect(msg, names)
	if err != nil {
		return "", err
	}
	return kinds[i], nil
}

func warn(err error) {
	fmt.Fprintf(os.Stderr, "! %v\n", err)
}
