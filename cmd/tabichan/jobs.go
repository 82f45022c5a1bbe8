package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/jobs"
	"github.com/Podtech-AI/tabichan-go/rest"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <query>",
	Short: "Start a generation and wait for its result",
	Args:  cobra.ExactArgs(1),
	RunE:  runChat,
}

var pollCmd = &cobra.Command{
	Use:   "poll <task-id>",
	Short: "Show the current status of a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runPoll,
}

var imageCmd = &cobra.Command{
	Use:   "image <id>",
	Short: "Fetch an image by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runImage,
}

var (
	chatCountry  string
	chatPrefs    []string
	imageCountry string
	imageOut     string
)

func init() {
	rootCmd.AddCommand(chatCmd, pollCmd, imageCmd)

	chatCmd.Flags().StringVarP(&chatCountry, "country", "c", string(domain.CountryJapan), "dataset to plan with (japan, france)")
	chatCmd.Flags().StringArrayVarP(&chatPrefs, "pref", "p", nil, "additional input as key=value (repeatable)")

	imageCmd.Flags().StringVarP(&imageCountry, "country", "c", string(domain.CountryJapan), "dataset the image belongs to")
	imageCmd.Flags().StringVarP(&imageOut, "out", "o", "", "write the decoded image to this file instead of printing base64")
}

func newPoller() *jobs.Poller {
	client := rest.New(cfg.APIKey, rest.WithBaseURL(cfg.BaseURL), rest.WithLogger(logger))
	return jobs.NewPoller(client, jobs.WithLogger(logger))
}

func runChat(cmd *cobra.Command, args []string) error {
	user, err := resolveUser()
	if err != nil {
		return err
	}
	extra, err := parsePreferences(chatPrefs)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p := newPoller()

	taskID, err := p.Start(ctx, args[0], user, domain.Country(chatCountry), nil, extra)
	if err != nil {
		return fmt.Errorf("start chat: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "task %s started\n", taskID)

	var opts []jobs.WaitOption
	if cfg.Verbose {
		opts = append(opts, jobs.WithVerbose())
	}
	result, err := p.Wait(ctx, taskID, opts...)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runPoll(cmd *cobra.Command, args []string) error {
	res, err := newPoller().Poll(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runImage(cmd *cobra.Command, args []string) error {
	img, err := newPoller().Image(cmd.Context(), args[0], domain.Country(imageCountry))
	if err != nil {
		return err
	}
	if imageOut == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), img)
		return err
	}

	data, err := base64.StdEncoding.DecodeString(img)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	if err := os.WriteFile(imageOut, data, 0o644); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d bytes to %s\n", len(data), imageOut)
	return nil
}

// printJSON writes raw indented. Non-JSON payloads are written as-is.
func printJSON(w io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		buf.Reset()
		buf.Write(raw)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
