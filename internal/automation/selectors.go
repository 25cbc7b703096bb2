package automation

// Selector fallback lists, ordered most-specific first. Google and
// YouTube shuffle their markup between experiments, so every lookup
// walks a list until one selector resolves to a visible element.

const (
	youtubeHomeURL     = "https://www.youtube.com/"
	youtubeTrendingURL = "https://www.youtube.com/feed/trending"
	youtubeResultsURL  = "https://www.youtube.com/results"
	googleSignInURL    = "https://accounts.google.com/signin/v2/identifier?service=youtube&continue=https%3A%2F%2Fwww.youtube.com%2F&hl=pt-BR"
)

var emailFieldSelectors = []string{
	`input[type="email"]#identifierId`,
	`#identifierId`,
	`input[name="identifier"]`,
	`input[type="email"]`,
}

var passwordFieldSelectors = []string{
	`input[name="Passwd"]`,
	`#password input[type="password"]`,
	`input[type="password"]`,
	`input[name="password"]`,
}

var identifierNextSelectors = []string{
	`#identifierNext button`,
	`#identifierNext`,
	`button[jsname="LgbsSe"]`,
}

var passwordNextSelectors = []string{
	`#passwordNext button`,
	`#passwordNext`,
	`button[jsname="LgbsSe"]`,
}

var signInLinkSelectors = []string{
	`a[aria-label="Sign in"]`,
	`a[aria-label="Fazer login"]`,
	`ytd-button-renderer a[href*="ServiceLogin"]`,
	`a[href*="accounts.google.com/ServiceLogin"]`,
	`tp-yt-paper-button[aria-label*="login"]`,
}

// Visible on YouTube only when an account is signed in.
var avatarSelectors = []string{
	`button#avatar-btn`,
	`#avatar-btn`,
	`ytd-topbar-menu-button-renderer button#avatar-btn`,
	`img#img.style-scope.yt-img-shadow[alt*="Avatar"]`,
}

var signOutSelectors = []string{
	`a[href*="logout"]`,
	`ytd-compact-link-renderer a[href*="logout"]`,
	`tp-yt-paper-item a[href*="Logout"]`,
}

var captchaSelectors = []string{
	`iframe[src*="recaptcha"]`,
	`div.g-recaptcha`,
	`img#captchaimg`,
	`#captchaimg`,
}

var twoFactorSelectors = []string{
	`#totpPin`,
	`input[name="totpPin"]`,
	`#idvPin`,
	`[data-challengetype]`,
	`samp.idvPhoneVal`,
}

var searchBoxSelectors = []string{
	`input#search`,
	`ytd-searchbox input#search`,
	`input[name="search_query"]`,
	`#search-input input`,
}

var searchResultSelectors = []string{
	`ytd-video-renderer a#video-title`,
	`a#video-title`,
}

// Substrings of account-lockout and hard-failure pages, checked against
// rendered HTML when no selector-level signal fires. Portuguese variants
// included because the personas browse in pt-BR.
var lockoutPhrases = []string{
	"Your account has been disabled",
	"account has been locked",
	"Sua conta foi desativada",
	"Couldn't sign you in",
	"This browser or app may not be secure",
	"Este navegador ou app pode não ser seguro",
}
