package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"chatlink/internal/domain"
	authService "chatlink/internal/service/auth"
	chatService "chatlink/internal/service/chat"
	groupService "chatlink/internal/service/group"
	rosterService "chatlink/internal/service/roster"
	"chatlink/pkg/logger"
)

type app struct {
	auth   *authService.Service
	roster *rosterService.Service
	groups *groupService.Service
	chat   *chatService.Service

	session *domain.Session
}

func (a *app) run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "chatctl - type 'help' for commands")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "help":
			a.printHelp(out)
		case "signup":
			a.signUp(ctx, scanner, out)
		case "login":
			a.signIn(ctx, scanner, out)
		case "logout":
			a.signOut(ctx, out)
		case "whoami":
			a.whoami(out)
		case "contacts":
			a.listContacts(ctx, out)
		case "chat":
			if len(args) != 1 {
				fmt.Fprintln(out, "usage: chat <email>")
				continue
			}
			a.directChat(ctx, scanner, out, args[0])
		case "group":
			a.groupCommand(ctx, scanner, out, args)
		case "quit", "exit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q, try 'help'\n", cmd)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (a *app) printHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  signup                    create an account
  login                     sign in
  logout                    sign out (marks you offline)
  whoami                    show the current session
  contacts                  list contacts with presence
  chat <email>              open a direct conversation
  group list                list your groups
  group create              create a group
  group leave <id>          leave a group
  group chat <id>           open a group conversation
  quit                      exit
`)
}

func prompt(scanner *bufio.Scanner, out io.Writer, label string) string {
	fmt.Fprintf(out, "%s: ", label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func (a *app) signUp(ctx context.Context, scanner *bufio.Scanner, out io.Writer) {
	input := authService.SignUpInput{
		FullName:        prompt(scanner, out, "full name"),
		Email:           prompt(scanner, out, "email"),
		Phone:           prompt(scanner, out, "phone"),
		Password:        prompt(scanner, out, "password"),
		ConfirmPassword: prompt(scanner, out, "confirm password"),
	}
	session, err := a.auth.SignUp(ctx, input)
	if err != nil {
		fmt.Fprintln(out, "signup failed:", err)
		return
	}
	a.session = session
	fmt.Fprintf(out, "welcome, %s\n", session.DisplayName)
	a.markActive(ctx)
}

func (a *app) signIn(ctx context.Context, scanner *bufio.Scanner, out io.Writer) {
	email := prompt(scanner, out, "email")
	password := prompt(scanner, out, "password")
	session, err := a.auth.SignIn(ctx, email, password)
	if err != nil {
		fmt.Fprintln(out, "login failed:", err)
		return
	}
	a.session = session
	fmt.Fprintf(out, "signed in as %s\n", session.Email)
	a.markActive(ctx)
}

// markActive mirrors loading the profile screen after login.
func (a *app) markActive(ctx context.Context) {
	if err := a.roster.SetActive(ctx, a.session.UserID); err != nil {
		logger.Warn("failed to mark active", zap.Error(err))
	}
}

func (a *app) signOut(ctx context.Context, out io.Writer) {
	if a.session == nil {
		fmt.Fprintln(out, "not signed in")
		return
	}
	if err := a.auth.SignOut(ctx, a.session); err != nil {
		fmt.Fprintln(out, "logout failed:", err)
		return
	}
	a.session = nil
	fmt.Fprintln(out, "signed out")
}

func (a *app) whoami(out io.Writer) {
	if a.session == nil {
		fmt.Fprintln(out, "not signed in")
		return
	}
	fmt.Fprintf(out, "%s <%s>\n", a.session.DisplayName, a.session.Email)
}

func (a *app) listContacts(ctx context.Context, out io.Writer) {
	if a.session == nil {
		fmt.Fprintln(out, "sign in first")
		return
	}
	contacts, err := a.roster.Contacts(ctx, a.session.UserID)
	if err != nil {
		fmt.Fprintln(out, "failed to list contacts:", err)
		return
	}
	if len(contacts) == 0 {
		fmt.Fprintln(out, "no contacts yet")
		return
	}
	for _, c := range contacts {
		presence := "offline"
		if c.Active {
			presence = "online"
		} else if c.LastOnline > 0 {
			presence = "last seen " + time.UnixMilli(c.LastOnline).Format("Jan 2 15:04")
		}
		fmt.Fprintf(out, "  %-24s %-28s %s\n", c.FullName, c.Email, presence)
	}
}

func (a *app) directChat(ctx context.Context, scanner *bufio.Scanner, out io.Writer, email string) {
	if a.session == nil {
		fmt.Fprintln(out, "sign in first")
		return
	}
	peer, err := a.roster.Lookup(ctx, domain.EncodeUserID(email))
	if err != nil {
		fmt.Fprintln(out, "lookup failed:", err)
		return
	}
	if peer == nil {
		fmt.Fprintln(out, "no such contact")
		return
	}
	ref := domain.DirectConversation(a.session.Email, email)
	fmt.Fprintf(out, "chatting with %s - '/back' to leave, '/image /path', '/doc /path', '/audio /path'\n", peer.FullName)
	a.converse(ctx, scanner, out, ref, peer)
}

func (a *app) groupCommand(ctx context.Context, scanner *bufio.Scanner, out io.Writer, args []string) {
	if a.session == nil {
		fmt.Fprintln(out, "sign in first")
		return
	}
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: group list|create|leave <id>|chat <id>")
		return
	}
	switch args[0] {
	case "list":
		groups, err := a.groups.ListForUser(ctx, a.session.UserID)
		if err != nil {
			fmt.Fprintln(out, "failed to list groups:", err)
			return
		}
		if len(groups) == 0 {
			fmt.Fprintln(out, "no groups yet")
			return
		}
		for _, g := range groups {
			fmt.Fprintf(out, "  %-24s %s (%d members)\n", g.GroupName, g.ID, len(g.Participants))
		}
	case "create":
		name := prompt(scanner, out, "group name")
		members := strings.Fields(prompt(scanner, out, "member emails (space separated)"))
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, domain.EncodeUserID(m))
		}
		g, err := a.groups.Create(ctx, a.session.UserID, name, ids)
		if err != nil {
			fmt.Fprintln(out, "failed to create group:", err)
			return
		}
		fmt.Fprintf(out, "created %s (%s)\n", g.GroupName, g.ID)
	case "leave":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: group leave <id>")
			return
		}
		if err := a.groups.Leave(ctx, args[1], a.session.UserID); err != nil {
			fmt.Fprintln(out, "failed to leave:", err)
			return
		}
		fmt.Fprintln(out, "left the group")
	case "chat":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: group chat <id>")
			return
		}
		g, err := a.groups.Get(ctx, args[1])
		if err != nil {
			fmt.Fprintln(out, "failed to open group:", err)
			return
		}
		fmt.Fprintf(out, "in %s - '/back' to leave\n", g.GroupName)
		a.converse(ctx, scanner, out, domain.GroupConversation(g.ID), nil)
	default:
		fmt.Fprintln(out, "usage: group list|create|leave <id>|chat <id>")
	}
}

// converse runs a conversation loop: a goroutine renders incoming snapshots
// while the main loop reads input lines and publishes them. Send failures
// are logged and the loop keeps going; the feed will show what actually
// landed.
func (a *app) converse(ctx context.Context, scanner *bufio.Scanner, out io.Writer, ref domain.ConversationRef, peer *domain.User) {
	feed, err := a.chat.Subscribe(ctx, ref)
	if err != nil {
		fmt.Fprintln(out, "failed to open conversation:", err)
		return
	}
	defer feed.Close()

	go func() {
		for snap := range feed.Snapshots() {
			renderSnapshot(out, snap, a.session.Email)
		}
	}()

	for {
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/back":
			return
		case strings.HasPrefix(line, "/image "):
			a.sendFile(ctx, out, ref, peer, domain.KindImage, strings.TrimPrefix(line, "/image "))
		case strings.HasPrefix(line, "/doc "):
			a.sendFile(ctx, out, ref, peer, domain.KindDocument, strings.TrimPrefix(line, "/doc "))
		case strings.HasPrefix(line, "/audio "):
			a.sendFile(ctx, out, ref, peer, domain.KindAudio, strings.TrimPrefix(line, "/audio "))
		default:
			if err := a.chat.SendText(ctx, ref, *a.session, peer, line); err != nil {
				logger.Warn("send failed", zap.Error(err))
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (a *app) sendFile(ctx context.Context, out io.Writer, ref domain.ConversationRef, peer *domain.User, kind domain.MessageKind, path string) {
	path = strings.TrimSpace(path)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintln(out, "cannot open file:", err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fmt.Fprintln(out, "cannot stat file:", err)
		return
	}
	err = a.chat.SendMedia(ctx, ref, *a.session, peer, kind, filepath.Base(path), f, info.Size())
	if err != nil {
		logger.Warn("media send failed", zap.Error(err))
	}
}

func renderSnapshot(out io.Writer, snap *domain.ConversationSnapshot, selfEmail string) {
	fmt.Fprintln(out, "----")
	for _, msg := range snap.Messages {
		name := msg.SenderName
		if msg.SenderID == selfEmail {
			name = "you"
		}
		stamp := time.UnixMilli(msg.Timestamp).Format("15:04")
		switch msg.EffectiveKind() {
		case domain.KindAudio:
			fmt.Fprintf(out, "[%s] %s: (voice) %s\n", stamp, name, msg.AudioURI)
		case domain.KindImage:
			fmt.Fprintf(out, "[%s] %s: (photo) %s\n", stamp, name, msg.Text)
		case domain.KindDocument:
			fmt.Fprintf(out, "[%s] %s: (document) %s\n", stamp, name, msg.Text)
		default:
			fmt.Fprintf(out, "[%s] %s: %s\n", stamp, name, msg.Text)
		}
	}
	if snap.Typing != "" && snap.Typing != domain.EncodeUserID(selfEmail) {
		fmt.Fprintf(out, "%s is typing...\n", domain.DecodeUserID(snap.Typing))
	}
}
