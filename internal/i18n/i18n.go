// Package i18n holds the user facing messages of the portal, keyed by message id, in English and
// Spanish.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys
const (
	KeyGenericError        = "error.generic"
	KeyInvalidCredentials  = "auth.invalid_credentials"
	KeySessionExpired      = "auth.session_expired"
	KeyTooManyAttempts     = "auth.too_many_attempts"
	KeySignedOut           = "auth.signed_out"
	KeyFieldRequired       = "field.required"
	KeyFieldEmail          = "field.email"
	KeyFieldInvalid        = "field.invalid"
	KeySignInTitle         = "page.sign_in.title"
	KeySignUpTitle         = "page.sign_up.title"
	KeyForgotPasswordTitle = "page.forgot_password.title"
	KeyHomeTitle           = "page.home.title"
	KeyDashboardTitle      = "page.dashboard.title"
	KeyProfileTitle        = "page.profile.title"
	KeyWelcome             = "page.dashboard.welcome"
	KeyAskAdministrator    = "page.ask_administrator"
	KeyEmail               = "label.email"
	KeyPassword            = "label.password"
	KeyPhone               = "label.phone"
	KeyRoles               = "label.roles"
	KeyLastLogin           = "label.last_login"
	KeySignIn              = "action.sign_in"
	KeySignOut             = "action.sign_out"
	KeyMustChangePassword  = "auth.must_change_password"
)

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyGenericError:        "Something went wrong. Please try again.",
		KeyInvalidCredentials:  "Invalid email or password.",
		KeySessionExpired:      "Your session has expired. Please sign in again.",
		KeyTooManyAttempts:     "Too many sign in attempts. Please wait a minute.",
		KeySignedOut:           "You have been signed out.",
		KeyFieldRequired:       "This field is required.",
		KeyFieldEmail:          "Enter a valid email address.",
		KeyFieldInvalid:        "This value is not valid.",
		KeySignInTitle:         "Sign in",
		KeySignUpTitle:         "Create an account",
		KeyForgotPasswordTitle: "Forgot password",
		KeyHomeTitle:           "Home",
		KeyDashboardTitle:      "Dashboard",
		KeyProfileTitle:        "My profile",
		KeyWelcome:             "Welcome, %s",
		KeyAskAdministrator:    "Please contact your clinic administrator.",
		KeyEmail:               "Email",
		KeyPassword:            "Password",
		KeyPhone:               "Phone",
		KeyRoles:               "Roles",
		KeyLastLogin:           "Last sign in",
		KeySignIn:              "Sign in",
		KeySignOut:             "Sign out",
		KeyMustChangePassword:  "You must change your password.",
	},
	language.Spanish: {
		KeyGenericError:        "Algo salió mal. Inténtalo de nuevo.",
		KeyInvalidCredentials:  "Correo o contraseña incorrectos.",
		KeySessionExpired:      "Tu sesión ha expirado. Inicia sesión de nuevo.",
		KeyTooManyAttempts:     "Demasiados intentos de inicio de sesión. Espera un minuto.",
		KeySignedOut:           "Has cerrado sesión.",
		KeyFieldRequired:       "Este campo es obligatorio.",
		KeyFieldEmail:          "Introduce un correo electrónico válido.",
		KeyFieldInvalid:        "Este valor no es válido.",
		KeySignInTitle:         "Iniciar sesión",
		KeySignUpTitle:         "Crear una cuenta",
		KeyForgotPasswordTitle: "Recuperar contraseña",
		KeyHomeTitle:           "Inicio",
		KeyDashboardTitle:      "Panel",
		KeyProfileTitle:        "Mi perfil",
		KeyWelcome:             "Bienvenido, %s",
		KeyAskAdministrator:    "Contacta con el administrador de la clínica.",
		KeyEmail:               "Correo electrónico",
		KeyPassword:            "Contraseña",
		KeyPhone:               "Teléfono",
		KeyRoles:               "Roles",
		KeyLastLogin:           "Último acceso",
		KeySignIn:              "Iniciar sesión",
		KeySignOut:             "Cerrar sesión",
		KeyMustChangePassword:  "Debes cambiar tu contraseña.",
	},
}

var (
	supported = []language.Tag{language.English, language.Spanish}
	matcher   = language.NewMatcher(supported)
	cat       = buildCatalog()
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	return b
}

// Keys lists every message key of lang.
func Keys(lang language.Tag) []string {
	keys := make([]string, 0, len(messages[lang]))
	for k := range messages[lang] {
		keys = append(keys, k)
	}
	return keys
}

// Languages lists the supported languages, English first.
func Languages() []language.Tag {
	return supported
}

// Printer is bound to one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// ForAcceptLanguage picks the best supported language for an Accept-Language header value.
func ForAcceptLanguage(header string) *Printer {
	tags, _, _ := language.ParseAcceptLanguage(header)
	tag, _, _ := matcher.Match(tags...)
	return For(tag)
}

// For returns a printer for tag, which is reduced to its base language.
func For(tag language.Tag) *Printer {
	base, _ := tag.Base()
	matched, _, _ := matcher.Match(language.Make(base.String()))
	return &Printer{tag: matched, p: message.NewPrinter(matched, message.Catalog(cat))}
}

func (p *Printer) Language() language.Tag {
	return p.tag
}

// T translates key. Unknown keys are returned as is.
func (p *Printer) T(key string, args ...any) string {
	return p.p.Sprintf(key, args...)
}
