package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Lothnic/Ruty/pkg/agent"
	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/memory"
	"github.com/Lothnic/Ruty/pkg/session"
	"github.com/Lothnic/Ruty/pkg/tooling"
)

var chatDBPath string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive terminal chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat()
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatDBPath, "db", "", "Persist sessions in this sqlite database (default: in-memory)")
	rootCmd.AddCommand(chatCmd)
}

func openStore() (session.Store, func(), error) {
	if chatDBPath == "" {
		return session.NewMemoryStore(), func() {}, nil
	}
	store, err := session.OpenSQLite(chatDBPath)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { store.Close() }, nil
}

func runChat() error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	ag := agent.New(configStore(), store)
	sessionID := fmt.Sprintf("session_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])

	t := term.NewTerminal(os.Stdin, "You: ")

	fmt.Fprintln(t, "")
	fmt.Fprintln(t, "🧠 Ruty")
	fmt.Fprintln(t, strings.Repeat("=", 40))
	fmt.Fprintln(t, "Commands:")
	fmt.Fprintln(t, "  /context <path>  - Load files temporarily")
	fmt.Fprintln(t, "  /context clear   - Clear local context")
	fmt.Fprintln(t, "  /clear           - Clear screen")
	fmt.Fprintln(t, "  /quit            - Exit")
	fmt.Fprintln(t, strings.Repeat("=", 40))
	fmt.Fprintln(t, "")

	var contextName string
	pendingContext := ""

	defer func() {
		sess, err := store.Load(sessionID)
		if err != nil || sess == nil {
			return
		}
		fmt.Println("\n🧠 Analyzing session for long-term memories...")
		if ag.ExtractMemories(context.Background(), sess, config.Overrides{}) {
			fmt.Println("✓ Saved insights to memory")
		} else {
			fmt.Println("✓ No significant memories to save.")
		}
	}()

	for {
		if contextName != "" {
			t.SetPrompt(fmt.Sprintf("You [%s]: ", contextName))
		} else {
			t.SetPrompt("You: ")
		}

		prompt, err := readLine(t)
		if err != nil {
			if err != io.EOF {
				fmt.Fprintln(t, "Fatal:", err)
			}
			break
		}
		prompt = strings.TrimSpace(prompt)
		if prompt == "" {
			continue
		}

		if strings.HasPrefix(prompt, "/") {
			quit, ctxChanged, ctx, name := handleCommand(t, store, sessionID, prompt)
			if quit {
				break
			}
			if ctxChanged {
				pendingContext = ctx
				contextName = name
			}
			continue
		}

		fmt.Fprintln(t, "")
		stream := ag.RunStream(context.Background(), agent.TurnRequest{
			SessionID:    sessionID,
			Message:      prompt,
			LocalContext: pendingContext,
		})
		pendingContext = ""
		for stream.Next() {
			ev := stream.Current()
			switch ev.Kind {
			case agent.EventToolInvoked:
				fmt.Fprintln(t, "  🔧 Using:", ev.Name)
			case agent.EventAnswer:
				if ev.Content != "" {
					fmt.Fprintln(t, "Ruty:", ev.Content)
				}
			case agent.EventError:
				fmt.Fprintln(t, "Error:", ev.Content)
			}
		}
		fmt.Fprintln(t, "")
	}

	return nil
}

// handleCommand processes a /command line. It returns whether to quit,
// whether the local context changed, the context payload to attach to the
// next turn, and the context label.
func handleCommand(t *term.Terminal, store session.Store, sessionID, line string) (quit, ctxChanged bool, localContext, contextName string) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	arg := ""
	if len(parts) > 1 {
		arg = strings.TrimSpace(parts[1])
	}

	switch cmd {
	case "/quit", "/exit", "/q":
		fmt.Fprintln(t, "Goodbye!")
		return true, false, "", ""
	case "/clear":
		c := exec.Command("clear")
		c.Stdout = os.Stdout
		c.Run()
		return false, false, "", ""
	case "/context":
		if arg == "" || strings.EqualFold(arg, "clear") {
			clearSessionContext(store, sessionID)
			fmt.Fprintln(t, "✓ Local context cleared")
			return false, true, "", ""
		}
		path, err := filepath.Abs(expandHome(arg))
		if err != nil {
			fmt.Fprintln(t, "Error reading:", err)
			return false, false, "", ""
		}
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintln(t, "Path not found:", path)
			return false, false, "", ""
		}
		if info.IsDir() {
			fmt.Fprintln(t, "✓ Loaded files from:", info.Name())
			return false, true, memory.ReadDirContext(path, 0), info.Name()
		}
		fmt.Fprintln(t, "✓ Loaded:", info.Name())
		return false, true, tooling.ReadFileContext(path), info.Name()
	default:
		fmt.Fprintln(t, "Unknown command:", cmd)
		return false, false, "", ""
	}
}

func clearSessionContext(store session.Store, sessionID string) {
	sess, err := store.Load(sessionID)
	if err != nil || sess == nil {
		return
	}
	sess.LocalContext = ""
	store.Save(sess)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func readLine(t *term.Terminal) (string, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", err
	}

	if width, height, err := term.GetSize(fd); err == nil {
		t.SetSize(width, height)
	}

	line, err := t.ReadLine()
	restoreErr := term.Restore(fd, oldState)
	if err != nil {
		return "", err
	}
	if restoreErr != nil {
		return "", restoreErr
	}
	return line, nil
}
