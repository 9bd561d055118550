package server

import (
	"fmt"
	"html"
	"log"
	"net/http"

	gh "reposcanner/internal/github"
	"reposcanner/internal/models"
	"reposcanner/internal/session"
)

func writeHTML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (s *Server) telegramLink() string {
	if s.BotUsername == "" {
		return ""
	}
	return fmt.Sprintf(`<p><a href="https://t.me/%s" style="text-decoration: none; background-color: #0088cc; color: white; padding: 10px 20px; border-radius: 5px;">Open in Telegram</a></p>`, html.EscapeString(s.BotUsername))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := fmt.Sprintf(`
		<html>
		<head><title>RepoScanner</title></head>
		<body style="font-family: sans-serif; text-align: center; padding: 50px;">
			<h1>RepoScanner</h1>
			<p>The service is running. The JSON API lives under <code>/api</code>.</p>
			%s
		</body>
		</html>`, s.telegramLink())
	writeHTML(w, http.StatusOK, page)
}

func (s *Server) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeError(w, r, fmt.Errorf("%w: GitHub sign-in is not configured", models.ErrNotFound))
		return
	}
	state, err := gh.GenerateState()
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.StateCache.Set(state, session.WebUser, oauthStateTTL)
	http.Redirect(w, r, s.OAuth.GetLoginURL(state), http.StatusFound)
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		http.Error(w, "GitHub sign-in is not configured", http.StatusNotFound)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		http.Error(w, "Missing code", http.StatusBadRequest)
		return
	}

	userID, ok := s.StateCache.Take(state)
	if !ok {
		http.Error(w, "Invalid or expired state", http.StatusBadRequest)
		return
	}

	token, err := s.OAuth.ExchangeCode(r.Context(), code)
	if err != nil {
		log.Printf("OAuth code exchange failed: %v", err)
		http.Error(w, "Failed to exchange code", http.StatusBadGateway)
		return
	}

	st, err := s.Sessions.For(r.Context(), userID)
	if err != nil {
		http.Error(w, "Session unavailable", http.StatusInternalServerError)
		return
	}
	auth := st.Auth()
	auth.Token = token.AccessToken
	if err := st.SetAuth(r.Context(), auth); err != nil {
		log.Printf("Failed to save token for user %d: %v", userID, err)
		http.Error(w, "Failed to save token", http.StatusInternalServerError)
		return
	}

	login := "your GitHub account"
	if user := st.User(); user != nil {
		login = user.Login
	}

	if userID != session.WebUser && s.Notifier != nil {
		msg := fmt.Sprintf("✅ GitHub account <b>%s</b> connected successfully!", html.EscapeString(login))
		if err := s.Notifier.Notify(userID, msg); err != nil {
			log.Printf("Failed to notify user %d: %v", userID, err)
		}
	}

	page := fmt.Sprintf(`
		<html>
		<head><title>Connected</title></head>
		<body style="font-family: sans-serif; text-align: center; padding: 50px;">
			<h1>Authentication Successful</h1>
			<p>Connected as <b>%s</b>. You can close this window.</p>
			%s
		</body>
		</html>`, html.EscapeString(login), s.telegramLink())
	writeHTML(w, http.StatusOK, page)
}
