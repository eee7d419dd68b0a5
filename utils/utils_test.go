package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		wantErrs int
	}{
		{"abc", 4},
		{"abcdefgh", 3},
		{"Abcdefgh", 2},
		{"Abcdefg1", 1},
		{"password1!", 1},
		{"Password1!", 0},
	}
	for _, tt := range tests {
		valid, errs := ValidatePasswordStrength(tt.password, DefaultPasswordPolicy)
		assert.Equal(t, tt.wantErrs == 0, valid, tt.password)
		assert.Len(t, errs, tt.wantErrs, tt.password)
	}

	_, errs := ValidatePasswordStrength("Abcdefg1", DefaultPasswordPolicy)
	assert.Equal(t, []string{"Password must contain at least one special character"}, errs)
}

func TestValidatePasswordStrengthCountsCharacters(t *testing.T) {
	valid, errs := ValidatePasswordStrength("Äbc1!xY", DefaultPasswordPolicy)
	assert.False(t, valid)
	assert.Contains(t, errs, "Password must be at least 8 characters long")

	valid, errs = ValidatePasswordStrength("Äbcd1!xy", DefaultPasswordPolicy)
	assert.False(t, valid)
	assert.Equal(t, []string{"Password must contain at least one uppercase letter"}, errs)

	valid, _ = ValidatePasswordStrength("Äbcd1!xY", DefaultPasswordPolicy)
	assert.True(t, valid)
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"user@example.com", "a.b+c@sub.domain.io", "x@y.co"} {
		assert.True(t, ValidateEmail(ok), ok)
	}
	for _, bad := range []string{"user@example", "user.example.com", "@example.com", "user@.c", ""} {
		assert.False(t, ValidateEmail(bad), bad)
	}
}

func TestPasswordScoreRanksStrongerHigher(t *testing.T) {
	assert.Less(t, PasswordScore("password"), PasswordScore("v9#Lq!t2Zr@8mWx"))
}

func TestSanitizeInput(t *testing.T) {
	got := SanitizeInput("  <script>alert(1)</script>hello -- world  ")
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "--")
	assert.True(t, strings.HasPrefix(got, "hello"))
	assert.Equal(t, "", SanitizeInput(""))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "hello...", TruncateText("hello world", 5, true))
	assert.Equal(t, "hello", TruncateText("hello world", 5, false))
	assert.Equal(t, "short", TruncateText("short", 10, true))
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{time.Minute, "1 minute ago"},
		{2 * time.Hour, "2 hours ago"},
		{3 * 24 * time.Hour, "3 days ago"},
		{14 * 24 * time.Hour, "2 weeks ago"},
		{61 * 24 * time.Hour, "2 months ago"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(now.Add(-tt.ago), TimestampRelative, now))
	}

	at := time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "Jan 05, 2025", FormatTimestamp(at, TimestampShort, now))
	assert.Equal(t, "January 05, 2025 02:30 PM", FormatTimestamp(at, TimestampFull, now))
	assert.Equal(t, "N/A", FormatTimestamp(time.Time{}, TimestampFull, now))
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "xxx.xxx.1.100", MaskIP("192.168.1.100"))
	assert.Equal(t, "xxx.xxx.xxx.xxx", MaskIP("::1"))
	assert.Equal(t, "j******e@example.com", MaskEmail("john.doe@example.com"))
	assert.Equal(t, "a*@x.com", MaskEmail("ab@x.com"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua   string
		want UserAgentInfo
	}{
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", UserAgentInfo{"Desktop", "Chrome"}},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1", UserAgentInfo{"Mobile", "Safari"}},
		{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", UserAgentInfo{"Desktop", "Firefox"}},
		{"", UserAgentInfo{"Unknown", "Unknown"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseUserAgent(tt.ua), tt.ua)
	}
}

func TestFuzzyMatch(t *testing.T) {
	text := "function to sort a list of numbers"
	assert.True(t, FuzzyMatch("sort list", text, DefaultFuzzyThreshold))
	assert.True(t, FuzzyMatch("SORT A LIST", text, DefaultFuzzyThreshold))
	assert.False(t, FuzzyMatch("foobar", text, DefaultFuzzyThreshold))
	assert.False(t, FuzzyMatch("sort tree graph", text, DefaultFuzzyThreshold))
	assert.False(t, FuzzyMatch("", text, DefaultFuzzyThreshold))
}

func TestDiversityScore(t *testing.T) {
	assert.Equal(t, 100.0, DiversityScore(map[string]int64{"gemma-2b": 10}))
	assert.Equal(t, 50.0, DiversityScore(map[string]int64{"gemma-2b": 5, "phi-2": 5}))
	assert.InDelta(t, 20.0, DiversityScore(map[string]int64{"gemma-2b": 8, "phi-2": 2}), 1e-9)
	assert.Equal(t, 0.0, DiversityScore(nil))
}

func TestContributorScore(t *testing.T) {
	assert.Equal(t, int64(37), ContributorScore(3, 7))
	assert.Equal(t, int64(0), ContributorScore(0, 0))
}

func TestExportCSV(t *testing.T) {
	records := []Record{
		{"prompt": "sort, list", "language": "Go", "model_name": "gemma-2b"},
		{"prompt": "reverse", "language": "Python"},
	}
	out, err := ExportCSV(records, []string{"prompt", "language", "model_name"})
	require.NoError(t, err)
	assert.Equal(t, "prompt,language,model_name\n\"sort, list\",Go,gemma-2b\nreverse,Python,\n", out)
}

func TestExportTXT(t *testing.T) {
	at := time.Date(2025, 1, 5, 14, 30, 0, 0, time.UTC)
	out := ExportTXT([]Record{{"prompt": "reverse", "created_at": at}}, []string{"prompt", "created_at", "language"})

	assert.Contains(t, out, "Item 1")
	assert.Contains(t, out, "prompt: reverse")
	assert.Contains(t, out, "created_at: January 05, 2025 02:30 PM")
	assert.Contains(t, out, "language: N/A")
}

func TestJWTRoundTrip(t *testing.T) {
	SetJWTSecret("test-secret")

	token, err := GenerateJWTToken("abc123", "ada@example.com", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)

	expired, err := GenerateJWTToken("abc123", "ada@example.com", "user", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWTToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = ParseJWTToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("Password1!")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("Password1!", hash))
	assert.False(t, CheckPasswordHash("password1!", hash))
}

func TestGenerateRandomCode(t *testing.T) {
	code, err := GenerateRandomCode(6)
	require.NoError(t, err)
	assert.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := buildMessage("CodeGalaxy", "noreply@codegalaxy.com", "ada@example.com", "Welcome to CodeGalaxy 🚀", "<p>hi</p>")
	assert.Contains(t, msg, "From: CodeGalaxy <noreply@codegalaxy.com>\r\n")
	assert.Contains(t, msg, "To: ada@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n<p>hi</p>"))
}
