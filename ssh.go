package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"ollamaui/chat"
	"ollamaui/config"
	"ollamaui/logger"
	"ollamaui/models"
	"ollamaui/providers"
)

const sshHelp = `Commands:
  /models        list installed models
  /model <name>  switch model
  /reset         forget this conversation
  /exit          disconnect
Anything else is sent as a prompt.`

// SSHServer offers the chat as an interactive terminal session. The session is the
// client: it keeps the conversation history for as long as the connection lives.
type SSHServer struct {
	cfg       *config.Config
	responder *chat.Responder
	limiter   *RateLimiter
	sshConfig *ssh.ServerConfig

	mu    sync.Mutex
	conns map[*ssh.ServerConn]struct{}
}

// NewSSHServer creates the SSH front-end. Any client may connect; there is no auth.
func NewSSHServer(cfg *config.Config, responder *chat.Responder, limiter *RateLimiter) (*SSHServer, error) {
	signer, err := loadHostKey(cfg.SSH.HostKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH host key: %w", err)
	}

	sshConfig := &ssh.ServerConfig{NoClientAuth: true}
	sshConfig.AddHostKey(signer)

	return &SSHServer{
		cfg:       cfg,
		responder: responder,
		limiter:   limiter,
		sshConfig: sshConfig,
		conns:     make(map[*ssh.ServerConn]struct{}),
	}, nil
}

// loadHostKey reads the host key, creating it on first start. An empty path means an
// ephemeral key.
func loadHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return ssh.ParsePrivateKey(data)
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	if path != "" {
		block, err := ssh.MarshalPrivateKey(key, "ollamaui host key")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, pem.EncodeToMemory(block), 0600); err != nil {
			return nil, err
		}
		logger.Component("SSH").Info("generated host key", "path", path)
	}

	return ssh.NewSignerFromKey(key)
}

// ListenAndServe accepts connections until ctx is done
func (s *SSHServer) ListenAndServe(ctx context.Context, port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	logger.Component("SSH").Info("listening", "addr", listener.Addr().String())
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then disconnects open sessions
func (s *SSHServer) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
		s.closeAll()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *SSHServer) handleConn(ctx context.Context, conn net.Conn) {
	log := logger.Component("SSH")

	if !s.limiter.Allow(conn.RemoteAddr().String()) {
		conn.Close()
		return
	}

	sshConn, chans, reqs, err := ssh.NewServerConn(conn, s.sshConfig)
	if err != nil {
		log.Debug("handshake failed", "remote", conn.RemoteAddr().String(), "err", err)
		conn.Close()
		return
	}
	defer sshConn.Close()
	if !s.track(ctx, sshConn) {
		return
	}
	defer s.untrack(sshConn)
	go ssh.DiscardRequests(reqs)

	log.Info("client connected", "remote", sshConn.RemoteAddr().String(), "client", string(sshConn.ClientVersion()))

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			log.Error("could not accept channel", "err", err)
			continue
		}

		go func(in <-chan *ssh.Request) {
			for req := range in {
				switch req.Type {
				case "shell", "pty-req", "window-change":
					req.Reply(true, nil)
				default:
					req.Reply(false, nil)
				}
			}
		}(requests)

		go func() {
			defer channel.Close()
			s.session(ctx, channel, sshConn.RemoteAddr().String())
		}()
	}
}

// track registers an open connection; it refuses once ctx is done
func (s *SSHServer) track(ctx context.Context, conn *ssh.ServerConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *SSHServer) untrack(conn *ssh.ServerConn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// closeAll disconnects every open connection, ending their sessions
func (s *SSHServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	if n := len(s.conns); n > 0 {
		logger.Component("SSH").Info("closed open connections", "count", n)
	}
}

// session runs the line-based chat loop on one terminal
func (s *SSHServer) session(ctx context.Context, rw io.ReadWriter, remote string) {
	terminal := term.NewTerminal(rw, "> ")
	var history []providers.Message
	model := s.defaultModel(ctx)

	fmt.Fprintf(terminal, "%s\nModel: %s. Type /help for commands.\n", s.cfg.Server.Title, displayModel(model))

	for {
		line, err := terminal.ReadLine()
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return
		case line == "/help":
			fmt.Fprintln(terminal, sshHelp)
		case line == "/reset":
			history = nil
			fmt.Fprintln(terminal, "Conversation cleared.")
		case line == "/models":
			for _, name := range models.Names(s.responder.ListModels(ctx)) {
				if name != "" {
					fmt.Fprintln(terminal, "  "+name)
				}
			}
		case strings.HasPrefix(line, "/model "):
			model = strings.TrimSpace(strings.TrimPrefix(line, "/model "))
			fmt.Fprintf(terminal, "Model: %s\n", displayModel(model))
		default:
			history = s.generate(ctx, terminal, remote, model, line, history)
		}
	}
}

// generate sends one prompt and returns the updated history. On failure the user turn
// stays in the history and no assistant turn is added.
func (s *SSHServer) generate(ctx context.Context, w io.Writer, remote, model, prompt string, history []providers.Message) []providers.Message {
	telemetry := newTelemetry("SSH", remote)
	defer telemetry.Finish()

	if !s.limiter.Allow(remote) {
		telemetry.ErrorKind = "rate_limited"
		fmt.Fprintln(w, "Rate limit exceeded, try again shortly.")
		return history
	}

	history = chat.WithPrompt(history, prompt)
	telemetry.Model = model
	telemetry.InputHash = generateSignature(prompt)

	result, err := s.responder.GenerateChatResponse(ctx, prompt, model, history)
	if err != nil {
		telemetry.ErrorKind = string(chat.KindOf(err))
		fmt.Fprintf(w, "Error generating response (%s)\n", chat.KindOf(err))
		return history
	}

	telemetry.OutputHash = generateSignature(result.Response)
	if s.cfg.SSH.ShowThought && result.ChainOfThought != "" {
		fmt.Fprintf(w, "[thinking] %s\n\n", result.ChainOfThought)
	}
	fmt.Fprintln(w, result.Response)

	return append(history, providers.Message{Role: providers.RoleAssistant, Content: result.Response})
}

// defaultModel picks the configured SSH model, then the default, then the first installed one
func (s *SSHServer) defaultModel(ctx context.Context) string {
	if s.cfg.SSH.Model != "" {
		return s.cfg.SSH.Model
	}
	if s.cfg.Inference.DefaultModel != "" {
		return s.cfg.Inference.DefaultModel
	}
	list := s.responder.ListModels(ctx)
	if len(list) > 0 && !list[0].IsPlaceholder() {
		return list[0].Name
	}
	return ""
}

func displayModel(model string) string {
	if model == "" {
		return models.CatalogUnavailableName
	}
	return model
}
