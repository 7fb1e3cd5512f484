package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/fatih/color"
	logrus "github.com/sirupsen/logrus"

	"langlang/admission"
	"langlang/config"
	"langlang/executor"
	"langlang/result"
	"langlang/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: evalcli <languages|eval [file]>")
		os.Exit(1)
	}

	cfg := config.LoadConfig()
	coreLogger := logrus.New()
	coreLogger.SetOutput(os.Stderr)
	coreLogger.SetLevel(logrus.WarnLevel)

	client := executor.NewClient(executor.Config{
		Endpoint: cfg.LangLangURL,
		Timeout:  cfg.BackendTimeout,
		Logger:   coreLogger,
	})
	gate := admission.New(admission.Config{
		MaxConcurrency: cfg.MaxConcurrency,
		StaleAfter:     cfg.StaleAfter,
		Logger:         coreLogger,
	})
	svc := service.NewEvalService(client, gate, nil, nil, service.Options{
		Classify:  result.Options{MaxLength: cfg.MaxResultLength},
		NoticeTTL: cfg.WaitNoticeTTL,
	})

	switch os.Args[1] {
	case "languages":
		fmt.Println(svc.Languages())
	case "eval":
		text, err := readSource(os.Args[2:])
		if err != nil {
			color.Red("Error: %v", err)
			os.Exit(1)
		}
		if err := svc.Eval(context.Background(), identity(), text, terminal{out: color.Output}); err != nil {
			if !service.IsUserError(err) {
				color.Red("Error: %v", err)
			}
			os.Exit(1)
		}
	default:
		fmt.Println("Unknown command.")
		os.Exit(1)
	}
}

func readSource(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func identity() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "local"
}

// terminal renders messages on a color capable writer.
type terminal struct {
	out io.Writer
}

var palette = map[result.Color]*color.Color{
	result.ColorSuccess: color.New(color.FgGreen, color.Bold),
	result.ColorFailure: color.New(color.FgRed, color.Bold),
	result.ColorWarning: color.New(color.FgYellow, color.Bold),
	result.ColorPending: color.New(color.FgBlue, color.Bold),
}

func (t terminal) Reply(_ context.Context, msg service.Message) (string, error) {
	return "", t.render(msg)
}

func (t terminal) Edit(_ context.Context, _ string, msg service.Message) error {
	return t.render(msg)
}

func (t terminal) render(msg service.Message) error {
	if msg.Embed == nil {
		_, err := color.New(color.Faint).Fprintln(t.out, msg.Text)
		return err
	}

	e := msg.Embed
	c, ok := palette[e.Color]
	if !ok {
		return errors.New("unknown color class " + string(e.Color))
	}
	if _, err := c.Fprintln(t.out, e.Title); err != nil {
		return err
	}
	if e.Body != "" {
		fmt.Fprintln(t.out, e.Body)
	}
	if e.Footer != "" {
		color.New(color.Faint).Fprintln(t.out, e.Footer)
	}
	return nil
}
