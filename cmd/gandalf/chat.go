package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/gandalf/internal/domain"
	"github.com/felixgeelhaar/gandalf/internal/hints"
	"github.com/felixgeelhaar/gandalf/internal/tutor"
	"github.com/felixgeelhaar/gandalf/internal/whiteboard"
)

var (
	chatNew bool
	chatID  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start or resume a tutoring conversation",
	Long: `Chat with the tutor about a math problem. Type a question to start,
then use slash commands for hints. Type /help inside the chat for the list.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	addChatFlags(chatCmd)
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&chatNew, "new", false, "start a new conversation instead of resuming")
	cmd.Flags().StringVar(&chatID, "id", "", "resume the conversation with this ID")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.connect(ctx, flagMode); err != nil {
		return err
	}

	s, err := startSession(ctx, a, cmd.OutOrStdout(), chatID, chatNew)
	if err != nil {
		return err
	}
	s.greet()
	return s.run(ctx, cmd.InOrStdin())
}

// session is one interactive conversation with its hint engine.
type session struct {
	app *app
	out io.Writer
	md  *markdown

	conv  domain.Conversation
	saved bool

	engine     *hints.Engine
	difficulty domain.Difficulty
	language   domain.Language
}

func startSession(ctx context.Context, a *app, out io.Writer, id string, fresh bool) (*session, error) {
	s := &session{
		app: a,
		out: out,
		md:  newMarkdown(a.renderer, 80),
	}
	s.difficulty, s.language = a.preferences(ctx)

	conv, saved, err := s.resolveConversation(ctx, id, fresh)
	if err != nil {
		return nil, err
	}
	s.conv, s.saved = conv, saved
	s.engine = hints.NewEngine(ctx, a.hints, a.hintRepo, s.resumedProblem(ctx), hints.WithLogger(a.logger))
	return s, nil
}

func (s *session) resolveConversation(ctx context.Context, id string, fresh bool) (domain.Conversation, bool, error) {
	store := s.app.conversations
	if id != "" {
		conv, err := store.Load(ctx, id)
		if err != nil {
			return conv, false, fmt.Errorf("load conversation %s: %w", id, err)
		}
		if err := store.SetCurrent(ctx, id); err != nil {
			s.app.logger.Warn("failed to mark conversation current", "conversation_id", id, "error", err)
		}
		return conv, true, nil
	}

	if !fresh {
		cur, ok, err := store.Current(ctx)
		if err != nil {
			s.app.logger.Warn("failed to read current conversation", "error", err)
		}
		if ok {
			conv, err := store.Load(ctx, cur)
			if err == nil {
				return conv, true, nil
			}
			s.app.logger.Warn("current conversation missing, starting a new one", "conversation_id", cur, "error", err)
		}
	}
	return store.New(), false, nil
}

// resumedProblem picks up the most recently hinted problem of a stored
// conversation so the learner keeps their hint level. An unanswered
// question at the end of the conversation is a new problem.
func (s *session) resumedProblem(ctx context.Context) hints.Problem {
	p := hints.Problem{
		ConversationID: s.conv.ID,
		Text:           hints.ProblemText(s.conv),
		Context:        hints.ContextLines(s.conv, 10),
		Difficulty:     s.difficulty,
		Language:       s.language,
	}
	if !s.saved {
		return p
	}
	if last, ok := s.conv.LastMessage(); ok && last.Role == domain.RoleUser {
		p.ProblemID = domain.NewProblemID()
		return p
	}

	states, err := s.app.hintRepo.ConversationHints(ctx, s.conv.ID)
	if err != nil {
		s.app.logger.Warn("failed to load hint progress", "conversation_id", s.conv.ID, "error", err)
	}
	p.ProblemID = latestProblemID(states)
	if p.ProblemID == "" && p.Text != "" {
		p.ProblemID = domain.NewProblemID()
	}
	return p
}

// latestProblemID returns the problem whose newest hint is most recent,
// or the last listed problem when none has hints.
func latestProblemID(states []domain.HintState) string {
	id := ""
	newest := int64(-1)
	for _, st := range states {
		for _, e := range st.HintHistory {
			if e.Timestamp > newest {
				newest, id = e.Timestamp, st.ProblemID
			}
		}
	}
	if id == "" && len(states) > 0 {
		id = states[len(states)-1].ProblemID
	}
	return id
}

func (s *session) greet() {
	fmt.Fprintln(s.out, titleStyle.Render("Gandalf · Socratic math tutor"))
	mode := "in-process"
	if s.app.remote {
		mode = "daemon " + s.app.daemonURL()
	}
	fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("%s · %s · %s",
		s.difficulty.Config().Name, s.language.Config().NativeName, mode)))

	if len(s.conv.Messages) > 0 {
		fmt.Fprintln(s.out, mutedStyle.Render(fmt.Sprintf("Resuming %q (%d messages). --new starts over.", s.conv.Title, len(s.conv.Messages))))
		if last, ok := s.conv.LastMessage(); ok && last.Role == domain.RoleAssistant {
			fmt.Fprintf(s.out, "\n%s\n%s\n", tutorStyle.Render("Gandalf"), s.md.Render(last.Text()))
		}
	}
	fmt.Fprintln(s.out, mutedStyle.Render("Ask a math question. "+keyStyle.Render("/help")+" lists commands."))
	fmt.Fprintln(s.out)
}

// run reads lines until EOF, /quit or cancellation.
func (s *session) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64<<10), 1<<20)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()

	for {
		fmt.Fprint(s.out, userStyle.Render("you › "))
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				return <-errc
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := s.command(ctx, line); quit {
				return nil
			}
			continue
		}
		if err := s.send(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			s.printError(err.Error())
		}
	}
}

// send stores the learner's message, starts a new hint problem and prints
// the tutor's reply.
func (s *session) send(ctx context.Context, text string) error {
	return s.sendMessage(ctx, domain.NewTextMessage(domain.NewMessageID(), domain.RoleUser, text))
}

func (s *session) sendMessage(ctx context.Context, msg domain.Message) error {
	if err := s.appendMessage(ctx, msg); err != nil {
		return err
	}
	s.engine.ObserveMessages(ctx, s.conv)
	return s.reply(ctx)
}

func (s *session) appendMessage(ctx context.Context, msg domain.Message) error {
	store := s.app.conversations
	if s.saved {
		conv, err := store.AppendMessage(ctx, s.conv.ID, msg)
		if err != nil {
			return fmt.Errorf("save message: %w", err)
		}
		s.conv = conv
		return nil
	}

	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().UnixMilli()
	}
	conv := s.conv
	conv.Messages = append(conv.Messages, msg)
	conv, err := store.Save(ctx, conv)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if err := store.SetCurrent(ctx, conv.ID); err != nil {
		s.app.logger.Warn("failed to mark conversation current", "conversation_id", conv.ID, "error", err)
	}
	s.conv, s.saved = conv, true
	return nil
}

func (s *session) reply(ctx context.Context) error {
	wb, err := s.app.whiteboards.Load(ctx, s.conv.ID)
	if err != nil {
		s.app.logger.Warn("ignoring unreadable whiteboard", "conversation_id", s.conv.ID, "error", err)
		wb = nil
	}
	if !whiteboard.HasContent(wb) {
		wb = nil
	}

	stream, err := s.app.chat.ChatStream(ctx, tutor.ChatRequest{
		Messages:   s.conv.Messages,
		Difficulty: s.difficulty,
		Language:   s.language,
		Whiteboard: wb,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.printError(chatMessage(err))
		return nil
	}

	fmt.Fprintln(s.out, mutedStyle.Render("thinking..."))
	var sb strings.Builder
	for chunk := range stream {
		switch chunk.Type {
		case "content":
			sb.WriteString(chunk.Content)
		case "error":
			s.printError(chatMessage(chunk.Error))
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if err := s.appendMessage(ctx, domain.NewTextMessage(domain.NewMessageID(), domain.RoleAssistant, text)); err != nil {
		s.app.logger.Warn("failed to save reply", "conversation_id", s.conv.ID, "error", err)
	}
	s.engine.ObserveMessages(ctx, s.conv)

	fmt.Fprintf(s.out, "%s\n%s\n\n", tutorStyle.Render("Gandalf"), s.md.Render(text))
	return nil
}

// chatMessage converts a chat failure into text for the learner.
func chatMessage(err error) string {
	var ce *tutor.ChatError
	switch {
	case errors.As(err, &ce) && ce.Message != "":
		return ce.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "The tutor took too long to answer. Please try again."
	default:
		return "Could not reach the tutor. Please try again."
	}
}

const chatHelp = `Hints
  /hint              show a hint at the current level (or retry)
  /next              ask for a more specific hint
  /prev, /fwd        move through hints already shown
  /close, /reopen    hide or show the hint panel
  /reset             start this problem's hints over
Conversation
  /new               start a new conversation
  /difficulty <id>   elementary, middle-school, high-school or college
  /language <code>   en, es, fr, de, zh or ja
  /image <path> [q]  ask about a JPG, PNG or WebP image (up to 5MB)
  /board             describe the saved whiteboard
  /quit              leave`

// command runs a slash command and reports whether to quit.
func (s *session) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/hint":
		s.showHint(s.engine.RequestHint(ctx))
	case "/next":
		s.showHint(s.engine.RequestNextHint(ctx))
	case "/prev":
		s.printHint(s.engine.ViewPreviousHint())
	case "/fwd":
		s.printHint(s.engine.ViewNextHint())
	case "/close":
		s.engine.CloseHint()
		fmt.Fprintln(s.out, mutedStyle.Render("Hint hidden."))
	case "/reopen":
		v := s.engine.ReopenHints()
		if !v.Displaying {
			fmt.Fprintln(s.out, mutedStyle.Render("No hints yet. /hint asks for one."))
			return false
		}
		s.printHint(v)
	case "/reset":
		s.engine.ResetHints(ctx)
		fmt.Fprintln(s.out, mutedStyle.Render("Hints for this problem start over at level 0."))
	case "/new":
		s.conv, s.saved = s.app.conversations.New(), false
		s.engine.SetProblem(ctx, hints.Problem{
			ConversationID: s.conv.ID,
			Difficulty:     s.difficulty,
			Language:       s.language,
		})
		fmt.Fprintln(s.out, mutedStyle.Render("New conversation. Ask a math question."))
	case "/difficulty":
		s.setDifficulty(ctx, args)
	case "/language":
		s.setLanguage(ctx, args)
	case "/image":
		if err := s.sendImage(ctx, strings.TrimPrefix(line, name)); err != nil && !errors.Is(err, context.Canceled) {
			s.printError(err.Error())
		}
	case "/board":
		s.describeBoard(ctx)
	case "/help":
		fmt.Fprintln(s.out, chatHelp)
	case "/quit", "/exit":
		return true
	default:
		s.printError(fmt.Sprintf("Unknown command %s. /help lists commands.", name))
	}
	return false
}

func (s *session) showHint(v hints.View, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyProblem):
		fmt.Fprintln(s.out, mutedStyle.Render("Ask a question first, then request a hint."))
		return
	case errors.Is(err, hints.ErrRequestInFlight):
		fmt.Fprintln(s.out, mutedStyle.Render("A hint is already on its way."))
		return
	case errors.Is(err, hints.ErrStaleResponse), errors.Is(err, context.Canceled):
		return
	}
	s.printHint(v)
}

func (s *session) printHint(v hints.View) {
	if out := renderHintView(s.app.renderer, v); out != "" {
		fmt.Fprintln(s.out, out)
	}
}

func (s *session) setDifficulty(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Difficulty: %s\n", s.difficulty)
		return
	}
	d, err := domain.ParseDifficulty(args[0])
	if err != nil {
		s.printError(err.Error())
		return
	}
	if err := s.app.conversations.SetDifficulty(ctx, d); err != nil {
		s.app.logger.Warn("failed to save difficulty", "error", err)
	}
	s.difficulty = d
	s.refreshProblem(ctx)
	fmt.Fprintln(s.out, successStyle.Render("Difficulty set to "+d.Config().Name))
}

func (s *session) setLanguage(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "Language: %s\n", s.language)
		return
	}
	l, err := domain.ParseLanguage(args[0])
	if err != nil {
		s.printError(err.Error())
		return
	}
	if err := s.app.conversations.SetLanguage(ctx, l); err != nil {
		s.app.logger.Warn("failed to save language", "error", err)
	}
	s.language = l
	s.refreshProblem(ctx)
	fmt.Fprintln(s.out, successStyle.Render("Language set to "+l.Config().NativeName))
}

func (s *session) refreshProblem(ctx context.Context) {
	p := s.engine.Problem()
	p.Difficulty, p.Language = s.difficulty, s.language
	s.engine.SetProblem(ctx, p)
}

func (s *session) describeBoard(ctx context.Context) {
	wb, err := s.app.whiteboards.Load(ctx, s.conv.ID)
	if err != nil {
		s.printError(err.Error())
		return
	}
	if !whiteboard.HasContent(wb) {
		fmt.Fprintln(s.out, mutedStyle.Render("No whiteboard saved. Import one with 'gandalf whiteboard import'."))
		return
	}
	fmt.Fprintln(s.out, whiteboard.Describe(wb.Elements))
}

func (s *session) printError(msg string) {
	fmt.Fprintln(s.out, errorStyle.Render(msg))
}
