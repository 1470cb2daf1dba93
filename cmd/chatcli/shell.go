package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/suPer8Hu/n8n-chat/internal/chat"
	"github.com/suPer8Hu/n8n-chat/internal/chatstate"
	"github.com/suPer8Hu/n8n-chat/internal/composer"
)

const helpText = `commands:
  /list              show conversations
  /new               start a new conversation
  /open N            open conversation N from /list
  /rename N TITLE    rename conversation N
  /delete N          delete conversation N
  /quit              exit
anything else is sent as a message`

type shell struct {
	comp *composer.Composer
	in   *bufio.Reader
	out  io.Writer
}

func newShell(comp *composer.Composer, in *bufio.Reader, out io.Writer) *shell {
	return &shell{comp: comp, in: in, out: out}
}

func (s *shell) run(ctx context.Context) error {
	if err := s.comp.Load(ctx); err != nil {
		return err
	}
	s.printList(s.comp.State())
	fmt.Fprintln(s.out, "type /help for commands")

	for {
		fmt.Fprint(s.out, "> ")
		line, err := s.in.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			if quit := s.handle(ctx, line); quit {
				s.comp.Wait()
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			s.comp.Wait()
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// handle runs one input line and reports whether the shell should exit.
func (s *shell) handle(ctx context.Context, line string) bool {
	if !strings.HasPrefix(line, "/") {
		s.send(ctx, line)
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(s.out, helpText)
	case "/list":
		// let a pending title update land first
		s.comp.Wait()
		if err := s.comp.Load(ctx); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		s.printList(s.comp.State())
	case "/new":
		conv, err := s.comp.NewConversation(ctx)
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		fmt.Fprintf(s.out, "started %q\n", conv.Title)
	case "/open":
		conv, ok := s.pick(rest)
		if !ok {
			return false
		}
		if err := s.comp.Select(ctx, conv.ID); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		s.printTranscript(s.comp.State())
	case "/rename":
		n, title, _ := strings.Cut(rest, " ")
		conv, ok := s.pick(n)
		if !ok {
			return false
		}
		if _, err := s.comp.Rename(ctx, conv.ID, title); err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
	case "/delete":
		conv, ok := s.pick(rest)
		if !ok {
			return false
		}
		if err := s.comp.Delete(ctx, conv.ID); err != nil {
			fmt.Fprintln(s.out, "error:", err)
			return false
		}
		fmt.Fprintf(s.out, "deleted %q\n", conv.Title)
	default:
		fmt.Fprintln(s.out, "unknown command, try /help")
	}
	return false
}

func (s *shell) send(ctx context.Context, text string) {
	out, err := s.comp.Submit(ctx, text)
	if err != nil {
		fmt.Fprintln(s.out, "error:", err)
		return
	}
	fmt.Fprintf(s.out, "assistant: %s\n", out.Reply.Content)
}

func (s *shell) pick(arg string) (chat.Conversation, bool) {
	convs := s.comp.State().Conversations
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 || n > len(convs) {
		fmt.Fprintln(s.out, "no such conversation, see /list")
		return chat.Conversation{}, false
	}
	return convs[n-1], true
}

func (s *shell) printList(st chatstate.State) {
	if len(st.Conversations) == 0 {
		fmt.Fprintln(s.out, "no conversations yet")
		return
	}
	for i, c := range st.Conversations {
		marker := " "
		if c.ID == st.ActiveID {
			marker = "*"
		}
		fmt.Fprintf(s.out, "%s %d. %s (%s)\n", marker, i+1, c.Title, c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

func (s *shell) printTranscript(st chatstate.State) {
	if len(st.Transcript) == 0 {
		fmt.Fprintln(s.out, "(empty)")
		return
	}
	for _, m := range st.Transcript {
		who := "you"
		switch m.Role {
		case chat.RoleAssistant:
			who = "assistant"
		case chat.RoleExternal:
			who = "channel"
		}
		fmt.Fprintf(s.out, "%s: %s\n", who, m.Content)
	}
}
