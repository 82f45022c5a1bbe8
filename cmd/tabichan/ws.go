package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Podtech-AI/tabichan-go/chat"
	"github.com/spf13/cobra"
)

var wsCmd = &cobra.Command{
	Use:   "ws <query>",
	Short: "Plan interactively over a WebSocket session",
	Long: `Opens a session, sends the query and prints each question the service
asks. Answers are read from stdin, one line per question. The command exits
when the service reports the conversation complete.`,
	Args: cobra.ExactArgs(1),
	RunE: runWS,
}

var wsPrefs []string

func init() {
	rootCmd.AddCommand(wsCmd)
	wsCmd.Flags().StringArrayVarP(&wsPrefs, "pref", "p", nil, "preference as key=value (repeatable)")
}

func runWS(cmd *cobra.Command, args []string) error {
	user, err := resolveUser()
	if err != nil {
		return err
	}
	prefs, err := parsePreferences(wsPrefs)
	if err != nil {
		return err
	}

	c, err := chat.New(cfg.APIKey, user,
		chat.WithBaseURL(cfg.WebSocketBaseURL),
		chat.WithLogger(logger))
	if err != nil {
		return err
	}
	return converse(cmd.Context(), c, args[0], prefs, cmd.InOrStdin(), cmd.OutOrStdout())
}

// questionQueue buffers questions in arrival order. push never blocks, so
// the session's read loop is not held up while an answer is typed.
type questionQueue struct {
	mu    sync.Mutex
	items []chat.Question
	ready chan struct{}
}

func newQuestionQueue() *questionQueue {
	return &questionQueue{ready: make(chan struct{}, 1)}
}

func (q *questionQueue) push(question chat.Question) {
	q.mu.Lock()
	q.items = append(q.items, question)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *questionQueue) pop() (chat.Question, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return chat.Question{}, false
	}
	question := q.items[0]
	q.items = q.items[1:]
	return question, true
}

// converse drives one conversation: it prints questions and results to out
// and answers each question, in order, with the next line of in.
func converse(ctx context.Context, c *chat.Client, query string, prefs map[string]any, in io.Reader, out io.Writer) error {
	questions := newQuestionQueue()
	done := make(chan error, 1)
	finish := func(err error) {
		select {
		case done <- err:
		default:
		}
	}

	remove := c.AddListener(func(ev chat.Event) {
		switch ev.Kind {
		case chat.EventQuestion:
			fmt.Fprintf(out, "? %s\n", ev.Question.Text)
			questions.push(*ev.Question)
		case chat.EventResult:
			_ = printJSON(out, ev.Result)
		case chat.EventChatError:
			fmt.Fprintf(out, "! %v\n", ev.Err)
		case chat.EventComplete:
			finish(nil)
		case chat.EventAuthError:
			finish(ev.Err)
		case chat.EventDisconnected:
			finish(fmt.Errorf("disconnected: %d %s", ev.Code, ev.Reason))
		}
	})
	defer remove()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Close(closeCtx)
	}()

	if err := c.StartChat(ctx, query, nil, prefs); err != nil {
		return err
	}

	answers := bufio.NewScanner(in)
	for {
		select {
		case <-questions.ready:
			for q, ok := questions.pop(); ok; q, ok = questions.pop() {
				if !answers.Scan() {
					if err := answers.Err(); err != nil {
						return fmt.Errorf("read answer: %w", err)
					}
					return errors.New("no answer for question " + q.ID)
				}
				if err := c.Answer(ctx, q.ID, strings.TrimSpace(answers.Text())); err != nil {
					return err
				}
			}
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
