package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"code-bounty/internal/apperror"
	"code-bounty/internal/identity"
	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

// Principals reports the signed-in principal of one client.
type Principals interface {
	CurrentUser() *identity.Principal
}

// UserData is a profile together with the identity display name.
type UserData struct {
	Profile     models.Profile
	DisplayName string
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	UserData
	Token string
}

type SignUpInput struct {
	Email       string      `json:"email"`
	Password    string      `json:"password"`
	Role        models.Role `json:"role"`
	Name        string      `json:"name"`
	CompanyName string      `json:"companyName"`
}

// signInState names the steps of a sign-in for logging.
type signInState string

const (
	stateUnauthenticated    signInState = "unauthenticated"
	stateAuthenticating     signInState = "authenticating"
	stateProfileMissing     signInState = "profile_missing"
	stateProfileSynthesized signInState = "profile_synthesized"
	stateAuthenticated      signInState = "authenticated"
)

const defaultDisplayName = "User"

// AuthService signs users up, in and out and manages their profile.
type AuthService struct {
	auth     *identity.Auth
	profiles store.Profiles
}

func NewAuthService(auth *identity.Auth, profiles store.Profiles) *AuthService {
	return &AuthService{auth: auth, profiles: profiles}
}

// SignUp creates the identity, sets its display name and writes the profile.
// When the profile write fails the identity stays created; the next sign-in
// synthesizes a profile for it.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	name := strings.TrimSpace(in.Name)
	field := "name"
	if in.Role == models.RoleCompany {
		name = strings.TrimSpace(in.CompanyName)
		field = "companyName"
	}
	if _, err := models.ParseRole(string(in.Role)); err != nil {
		return nil, apperror.ValidationFailed("role", "Please choose whether you are a developer or a company.")
	}
	if name == "" {
		return nil, apperror.ValidationFailed(field, "Please enter your name.")
	}

	principal, err := s.auth.CreateUserWithEmailAndPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, signUpError(ctx, err)
	}
	ctx = log.WithPrincipal(ctx, principal.UID, string(in.Role))

	if err := s.auth.UpdateProfile(ctx, name); err != nil {
		log.Warn(ctx, "Failed to set display name after sign-up", "error", err)
	} else {
		principal.DisplayName = name
	}

	profile, err := models.NewProfile(in.Role, principal.UID, principal.Email, name)
	if err != nil {
		return nil, apperror.Backend(err, "")
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		log.Error(ctx, "Failed to write profile after sign-up",
			"error", err,
			"operation", "create_profile",
		)
		if errors.Is(err, store.ErrPermissionDenied) {
			return nil, apperror.Backend(err, "Permission denied. Please check your Firestore security rules.")
		}
		return nil, apperror.Backend(err, "Account created but profile setup incomplete. Please sign in to complete setup.")
	}

	log.Info(ctx, "User signed up")
	return &AuthResult{
		UserData: UserData{Profile: profile, DisplayName: principal.DisplayName},
		Token:    s.auth.Token(),
	}, nil
}

func signUpError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrEmailInUse):
		return apperror.Conflict("An account with this email already exists. Please try signing in instead.")
	case errors.Is(err, identity.ErrWeakPassword):
		return apperror.ValidationFailed("password", "Password is too weak. Please choose a stronger password.")
	case errors.Is(err, identity.ErrPasswordTooLong):
		return apperror.ValidationFailed("password", "Password is too long. Please use at most 72 bytes.")
	case errors.Is(err, identity.ErrInvalidEmail):
		return apperror.ValidationFailed("email", "Please enter a valid email address.")
	default:
		log.Error(ctx, "Sign-up failed",
			"error", err,
			"operation", "create_identity",
		)
		return apperror.Backend(err, "")
	}
}

// SignIn authenticates and returns the profile, creating a developer profile
// for identities that have none.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	state := stateUnauthenticated
	transition := func(next signInState) {
		log.Debug(ctx, "Sign-in state changed", "from", state, "to", next)
		state = next
	}

	transition(stateAuthenticating)
	principal, err := s.auth.SignInWithEmailAndPassword(ctx, email, password)
	if err != nil {
		transition(stateUnauthenticated)
		return nil, signInError(ctx, err)
	}
	ctx = log.WithPrincipal(ctx, principal.UID, "")

	profile, err := s.profiles.GetProfile(ctx, principal.UID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		transition(stateProfileMissing)
		profile, err = s.synthesizeProfile(ctx, principal)
		if err != nil {
			return nil, err
		}
		transition(stateProfileSynthesized)
	default:
		log.Error(ctx, "Failed to load profile on sign-in",
			"error", err,
			"operation", "get_profile",
		)
		return nil, apperror.Backend(err, "")
	}

	transition(stateAuthenticated)
	log.Info(ctx, "User signed in", "role", profile.Role())
	return &AuthResult{
		UserData: UserData{Profile: profile, DisplayName: principal.DisplayName},
		Token:    s.auth.Token(),
	}, nil
}

func (s *AuthService) synthesizeProfile(ctx context.Context, principal *identity.Principal) (models.Profile, error) {
	name := principal.DisplayName
	if name == "" {
		name = defaultDisplayName
	}
	profile, err := models.NewProfile(models.RoleDeveloper, principal.UID, principal.Email, name)
	if err != nil {
		return nil, apperror.Backend(err, "")
	}

	err = s.profiles.CreateProfile(ctx, profile)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Another sign-in won the race; use its document.
		existing, getErr := s.profiles.GetProfile(ctx, principal.UID)
		if getErr == nil {
			return existing, nil
		}
		err = getErr
	}
	if err != nil {
		log.Error(ctx, "Failed to synthesize missing profile",
			"error", err,
			"operation", "synthesize_profile",
		)
		return nil, apperror.Backend(err, "Failed to create user profile. Please try signing up again.")
	}

	log.Info(ctx, "Synthesized missing profile", "role", models.RoleDeveloper)
	return profile, nil
}

func signInError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		return apperror.Unauthenticated("No account found with this email. Please sign up first.")
	case errors.Is(err, identity.ErrWrongPassword):
		return apperror.Unauthenticated("Incorrect password. Please try again.")
	case errors.Is(err, identity.ErrInvalidCredential), errors.Is(err, identity.ErrInvalidEmail):
		return apperror.Unauthenticated("Invalid credentials")
	case errors.Is(err, identity.ErrTooManyRequests):
		return apperror.RateLimited("Too many failed attempts. Please try again later.")
	default:
		log.Error(ctx, "Sign-in failed",
			"error", err,
			"operation", "sign_in",
		)
		return apperror.Backend(err, "")
	}
}

// SignOut ends the current session.
func (s *AuthService) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		log.Error(ctx, "Sign-out failed",
			"error", err,
			"operation", "sign_out",
		)
		return apperror.Backend(err, "")
	}
	return nil
}

// GetCurrentUserData returns nil without error when nobody is signed in or
// the signed-in identity has no profile.
func (s *AuthService) GetCurrentUserData(ctx context.Context) (*UserData, error) {
	principal := s.auth.CurrentUser()
	if principal == nil {
		return nil, nil
	}
	profile, err := s.profiles.GetProfile(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		log.Error(ctx, "Failed to load current user",
			"error", err,
			"uid", principal.UID,
			"operation", "get_current_user",
		)
		return nil, apperror.Backend(err, "")
	}
	return &UserData{Profile: profile, DisplayName: principal.DisplayName}, nil
}

// UpdateUserProfile renames the signed-in user. The role never changes and
// bounties keep the company name they were posted with.
func (s *AuthService) UpdateUserProfile(ctx context.Context, name string) (*UserData, error) {
	principal := s.auth.CurrentUser()
	if principal == nil {
		return nil, apperror.Unauthenticated("User not authenticated")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "Please enter your name.")
	}

	profile, err := s.profiles.GetProfile(ctx, principal.UID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperror.NotFound("User profile not found")
		}
		return nil, apperror.Backend(err, "")
	}
	ctx = log.WithPrincipal(ctx, principal.UID, string(profile.Role()))

	if err := s.profiles.UpdateProfileName(ctx, principal.UID, profile.Role(), name); err != nil {
		log.Error(ctx, "Failed to update profile name",
			"error", err,
			"field", models.NameField(profile.Role()),
			"operation", "update_profile_name",
		)
		return nil, apperror.Backend(fmt.Errorf("failed to update profile: %w", err), "")
	}
	if err := s.auth.UpdateProfile(ctx, name); err != nil {
		log.Warn(ctx, "Failed to update display name", "error", err)
	}

	updated, err := s.profiles.GetProfile(ctx, principal.UID)
	if err != nil {
		profile.SetDisplayName(name)
		updated = profile
	}
	log.Info(ctx, "User profile updated")
	return &UserData{Profile: updated, DisplayName: name}, nil
}
