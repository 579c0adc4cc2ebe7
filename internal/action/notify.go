package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"
)

// Notify renders a message and writes it to the log at the configured
// level. Placeholders of the form {{key}} or {{key.path}} are replaced with
// context values; the path part is a gjson path into the value
type Notify struct {
	logger  *slog.Logger
	message string
	level   slog.Level
	prefix  string
}

var placeholder = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

var _ workflow.Executor = (*Notify)(nil)

// NewNotify creates a Notify action that logs through logger, or through
// the default logger when logger is nil
func NewNotify(logger *slog.Logger, cfg api.Config) (*Notify, error) {
	msg, err := requireString(cfg, "message")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	res := &Notify{
		logger:  logger,
		message: msg,
	}
	switch lvl := cfg.String("level", "info"); lvl {
	case "debug":
		res.level = slog.LevelDebug
	case "info":
		res.level = slog.LevelInfo
	case "success":
		res.level = slog.LevelInfo
		res.prefix = "[SUCCESS] "
	case "warning", "warn":
		res.level = slog.LevelWarn
	case "error":
		res.level = slog.LevelError
	default:
		return nil, fmt.Errorf("%w: level %s", ErrInvalidOption, lvl)
	}
	return res, nil
}

// Execute logs the rendered message and returns it
func (n *Notify) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	msg := n.prefix + Render(n.message, c)
	n.logger.Log(ctx, n.level, msg)
	return msg, nil
}

// Render replaces {{key}} placeholders in tmpl with context values.
// Unknown keys render as empty strings
func Render(tmpl string, c *workflow.Context) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		ref := placeholder.FindStringSubmatch(m)[1]
		key, path, _ := strings.Cut(ref, ".")
		v, ok := c.Get(key)
		if !ok {
			return ""
		}
		if path != "" {
			data, err := json.Marshal(v)
			if err != nil {
				return ""
			}
			return gjson.GetBytes(data, path).String()
		}
		return stringify(v)
	})
}

// RewriteRefs renames the context key of every placeholder in tmpl for
// which rename reports a replacement
func RewriteRefs(tmpl string, rename func(string) (string, bool)) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		ref := placeholder.FindStringSubmatch(m)[1]
		key, path, hasPath := strings.Cut(ref, ".")
		to, ok := rename(key)
		if !ok {
			return m
		}
		if hasPath {
			return "{{" + to + "." + path + "}}"
		}
		return "{{" + to + "}}"
	})
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any, api.EventData, []any:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	default:
		return fmt.Sprint(v)
	}
}
