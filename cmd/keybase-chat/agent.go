package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// agent wraps the external keybase CLI. Every operation is one process
// invocation with captured stdout/stderr; callers run these inside tea.Cmd
// goroutines so the UI stays responsive while an invocation is outstanding.
type agent struct {
	binary  string
	timeout time.Duration
	log     *zap.Logger
}

// agentError means the keybase process could not be launched or exited
// non-zero. It always carries the captured diagnostic text.
type agentError struct {
	op     string
	stderr string
}

func (e *agentError) Error() string {
	return fmt.Sprintf("keybase %s failed: %s", e.op, e.stderr)
}

// protocolError means the process succeeded but its output was not in the
// expected shape. Kept distinct from agentError because the CLI's output
// format may drift independently of its exit status.
type protocolError struct {
	op  string
	err error
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("keybase %s returned unexpected output: %v", e.op, e.err)
}

func (e *protocolError) Unwrap() error { return e.err }

func (a agent) run(ctx context.Context, op string, args ...string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, a.binary, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		errText := strings.TrimSpace(stderr.String())
		if errText == "" {
			errText = err.Error()
		}
		if a.log != nil {
			a.log.Debug("agent invocation failed", zap.String("op", op), zap.String("stderr", errText))
		}
		return "", &agentError{op: op, stderr: errText}
	}
	return stdout.String(), nil
}

// CurrentUser resolves the logged-in username. The only agent call allowed
// to block startup: there is nothing useful to show before it resolves.
func (a agent) CurrentUser(ctx context.Context) (string, error) {
	out, err := a.run(ctx, "whoami", "whoami")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

type listEnvelope struct {
	Result struct {
		Conversations []conversation `json:"conversations"`
	} `json:"result"`
}

func (a agent) ListConversations(ctx context.Context) ([]conversation, error) {
	payload, err := json.Marshal(map[string]any{
		"method": "list",
		"params": map[string]any{"options": map[string]any{}},
	})
	if err != nil {
		return nil, err
	}
	out, err := a.run(ctx, "chat list", "chat", "api", "-m", string(payload))
	if err != nil {
		return nil, err
	}
	return parseConversationList([]byte(out))
}

func parseConversationList(raw []byte) ([]conversation, error) {
	var envelope listEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &protocolError{op: "chat list", err: err}
	}
	return envelope.Result.Conversations, nil
}

// ReadBacklog fetches at least atLeast historical messages as raw lines.
func (a agent) ReadBacklog(ctx context.Context, spec string, atLeast int) ([]string, error) {
	out, err := a.run(ctx, "chat read", "chat", "read", "--at-least", strconv.Itoa(atLeast), spec)
	if err != nil {
		return nil, err
	}
	return splitOutputLines(out), nil
}

// ReadSince fetches raw lines for messages newer than the given RFC3339
// instant. Mutually exclusive with ReadBacklog by construction.
func (a agent) ReadSince(ctx context.Context, spec string, since string) ([]string, error) {
	out, err := a.run(ctx, "chat read", "chat", "read", "--since", since, spec)
	if err != nil {
		return nil, err
	}
	return splitOutputLines(out), nil
}

// Send posts a text message. The caller logs and swallows failures; the
// user is not interrupted over a failed send.
func (a agent) Send(ctx context.Context, conversationID, body string) error {
	payload, err := json.Marshal(map[string]any{
		"method": "send",
		"params": map[string]any{
			"options": map[string]any{
				"conversation_id": conversationID,
				"message":         map[string]any{"body": body, "type": "text"},
			},
		},
	})
	if err != nil {
		return err
	}
	_, err = a.run(ctx, "chat send", "chat", "api", "-m", string(payload))
	return err
}

// AttachFile uploads a local file. The existence check happens here, before
// any agent round trip, so a mistyped path fails fast.
func (a agent) AttachFile(ctx context.Context, spec, path string) string {
	if _, err := os.Stat(path); err != nil {
		return fmt.Sprintf("File '%s' does not exist.", path)
	}
	if _, err := a.run(ctx, "chat upload", "chat", "upload", spec, path); err != nil {
		return "Error attaching file: " + agentErrorText(err)
	}
	return "File attached successfully."
}

// DownloadFile saves the attachment of the given message into destDir,
// creating the directory when missing. The output path is destDir/<id>.
func (a agent) DownloadFile(ctx context.Context, spec, messageID, destDir string) string {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "Error downloading file: " + err.Error()
	}
	outFile := filepath.Join(destDir, messageID)
	if _, err := a.run(ctx, "chat download", "chat", "download", spec, messageID, "--outfile", outFile); err != nil {
		return "Error downloading file: " + agentErrorText(err)
	}
	return fmt.Sprintf("File downloaded successfully to %s.", outFile)
}

func agentErrorText(err error) string {
	if agentErr, ok := err.(*agentError); ok {
		return agentErr.stderr
	}
	return err.Error()
}

func splitOutputLines(out string) []string {
	trimmed := strings.TrimRight(out, "\n")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
