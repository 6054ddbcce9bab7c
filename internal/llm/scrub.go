package llm

import "regexp"

// secretPatterns are applied in order; more specific patterns come first.
var secretPatterns = []struct {
	regex       *regexp.Regexp
	replacement string
}{
	// Environment variables with sensitive data
	{
		regexp.MustCompile(`(OPENAI_API_KEY|ANTHROPIC_API_KEY|GITHUB_TOKEN|GITLAB_TOKEN|AWS_SECRET_ACCESS_KEY)\s*=\s*([^\s]+)`),
		"$1=[REDACTED:ENV_SECRET]",
	},
	// Anthropic API keys (sk-ant- prefix, must precede the generic sk- pattern)
	{
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`),
		"[REDACTED:ANTHROPIC_KEY]",
	},
	// OpenAI API keys
	{
		regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`),
		"[REDACTED:OPENAI_KEY]",
	},
	// Generic API keys in various formats
	{
		regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*["']?\s*([^"'\s]{8,})["']?`),
		"$1=[REDACTED:API_KEY]",
	},
	// Bearer tokens
	{
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{20,}`),
		"[REDACTED:BEARER_TOKEN]",
	},
	// Tokens
	{
		regexp.MustCompile(`(?i)(token|auth[_-]?token)\s*[:=]\s*["']?\s*([^"'\s]{8,})["']?`),
		"$1=[REDACTED:TOKEN]",
	},
	// Passwords
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*["']?\s*([^"'\s]{4,})["']?`),
		"$1=[REDACTED:PASSWORD]",
	},
	// Private keys
	{
		regexp.MustCompile(`(?i)-----BEGIN (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----[\s\S]*?-----END (RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
		"[REDACTED:PRIVATE_KEY]",
	},
}

// scrubSecrets removes common secret patterns from content before it is sent
// to an external API. Uploaded documents are arbitrary user files, so chunk
// text forwarded in prompts may contain API keys, tokens, or passwords.
func scrubSecrets(content string) string {
	result := content
	for _, p := range secretPatterns {
		result = p.regex.ReplaceAllString(result, p.replacement)
	}
	return result
}
