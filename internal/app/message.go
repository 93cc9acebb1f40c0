// internal/app/message.go
package app

import (
	"fmt"

	"daily_quote_mailer/internal/domain/mail"
	"daily_quote_mailer/internal/domain/quote"
	"daily_quote_mailer/internal/domain/user"

	"github.com/osteele/liquid"
	"github.com/samber/lo"
)

const (
	// Subject is the fixed subject line of every quote email.
	Subject = "Your Daily Motivation from MindFuel"

	fallbackName = "Friend"

	bodySource = `Good Morning, {{ name }}!

Here's your daily dose of motivation:

"{{ text }}"

— {{ author }}

---
You're receiving this because you're subscribed to MindFuel daily motivation.
Have a wonderful day!
`
)

var bodyTemplate = mustParse(bodySource)

func mustParse(source string) *liquid.Template {
	tpl, err := liquid.NewEngine().ParseString(source)
	if err != nil {
		panic(fmt.Sprintf("app: invalid message template: %v", err))
	}
	return tpl
}

// greetingName is the name used to address u in the greeting line.
func greetingName(u *user.User) string {
	name := u.FullName()
	return lo.Ternary(name == "", fallbackName, name)
}

// composeMessage renders the plain-text quote email for u.
func composeMessage(from string, u *user.User, q *quote.Quote) (mail.Message, error) {
	body, err := bodyTemplate.RenderString(liquid.Bindings{
		"name":   greetingName(u),
		"text":   q.Text,
		"author": q.Author,
	})
	if err != nil {
		return mail.Message{}, fmt.Errorf("failed to render message body: %w", err)
	}
	return mail.Message{
		From:    from,
		To:      u.Email,
		Subject: Subject,
		Body:    body,
	}, nil
}
