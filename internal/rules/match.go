package rules

import (
	"regexp"
	"strings"

	"github.com/haiderali-dev/mailsort/internal/models"
)

// Matches reports whether a rule matches an email. It is a pure function of
// the rule and the email's fields: all non-regex operators compare case-folded
// strings, and regex is an unanchored case-insensitive search. An invalid
// regex pattern is a non-match, never an error.
func Matches(rule models.Rule, email *models.Email) bool {
	target := targetText(rule.Type, email)
	value := strings.ToLower(rule.Value)

	switch rule.Operator {
	case models.OperatorContains:
		return strings.Contains(target, value)
	case models.OperatorEquals:
		return target == value
	case models.OperatorStartsWith:
		return strings.HasPrefix(target, value)
	case models.OperatorEndsWith:
		return strings.HasSuffix(target, value)
	case models.OperatorRegex:
		re, err := regexp.Compile("(?i)" + rule.Value)
		if err != nil {
			return false
		}
		return re.MatchString(target)
	}

	return false
}

// targetText builds the case-folded text a rule is matched against. For body
// rules the plain-text part is preferred, falling back to the HTML part. For
// domain rules it is the part of the sender address after the first "@";
// a sender without "@" yields an empty target, which no domain rule matches.
func targetText(ruleType models.RuleType, email *models.Email) string {
	switch ruleType {
	case models.RuleTypeSender:
		return strings.ToLower(email.Sender)
	case models.RuleTypeSubject:
		return strings.ToLower(email.Subject)
	case models.RuleTypeBody:
		body := email.BodyText
		if body == "" {
			body = email.BodyHTML
		}
		return strings.ToLower(body)
	case models.RuleTypeDomain:
		return senderDomain(email.Sender)
	}

	return ""
}

// senderDomain extracts the domain from a sender that may be either a bare
// address or a "Name <box@host>" display form.
func senderDomain(sender string) string {
	at := strings.Index(sender, "@")
	if at < 0 {
		return ""
	}

	domain := sender[at+1:]
	if end := strings.IndexByte(domain, '>'); end >= 0 {
		domain = domain[:end]
	}

	return strings.ToLower(domain)
}
