package auth

// Service bundles token and password verification behind one surface for the
// game coordinator.
type Service struct {
	tokens    *TokenStore
	passwords *PasswordVerifier
}

func NewService(tokens *TokenStore, passwords *PasswordVerifier) *Service {
	return &Service{tokens: tokens, passwords: passwords}
}

// IsAuthenticated reports whether the opaque credential is a live session.
func (s *Service) IsAuthenticated(credential string) bool {
	return s.tokens.IsAuthenticated(credential)
}

// HostingEnabled reports whether host actions are possible at all.
func (s *Service) HostingEnabled() bool {
	return s.passwords.HostingEnabled()
}

// VerifyPassword checks a freshly supplied host password.
func (s *Service) VerifyPassword(candidate string) bool {
	return s.passwords.Verify(candidate)
}

// CreateSession issues a credential after a successful password check.
func (s *Service) CreateSession() string {
	return s.tokens.Create()
}
