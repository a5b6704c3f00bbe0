// Package mailer sends transactional email through Resend.
package mailer

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/money"
	"github.com/TrishadhiWickramasinghe/SubTrack-sub005/pkg/observability"
)

// Mailer sends product email. Without an API key every send is logged
// and dropped, so callers never need a nil check.
type Mailer struct {
	client  *resend.Client
	from    string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// New creates a Mailer. apiKey may be empty in development.
func New(apiKey, from string, metrics *observability.Metrics, logger *slog.Logger) *Mailer {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}

	return &Mailer{
		client:  client,
		from:    from,
		metrics: metrics,
		logger:  logger,
	}
}

func (m *Mailer) countSent(kind string) {
	if m.metrics != nil {
		m.metrics.IncrEmailSent(kind)
	}
}

// Digest is one user's weekly spending summary.
type Digest struct {
	Name            string
	MonthlyTotal    float64
	TrendDirection  string
	Recommendations []string
}

// SendWelcomeEmail greets a new account. It satisfies the auth
// service's EmailSender.
func (m *Mailer) SendWelcomeEmail(email, name string) error {
	if m.client == nil {
		m.logger.Warn("mail client not configured, skipping welcome email")
		return nil
	}

	if name == "" {
		name = "there"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <style>
    body { background-color: #f6f7f9; font-family: 'Inter', sans-serif; margin: 0; padding: 40px 0; }
    .container { background-color: #ffffff; border: 1px solid #e5e7eb; border-radius: 12px; padding: 40px; max-width: 480px; margin: 0 auto; }
    h1 { color: #111827; font-size: 26px; font-weight: 800; text-align: center; margin: 0 0 20px; }
    .text { color: #4b5563; font-size: 16px; line-height: 24px; text-align: center; }
    .footer { color: #9ca3af; font-size: 12px; text-align: center; margin-top: 30px; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Welcome, %s.</h1>
    <p class="text">Your SubTrack account is ready. Add your subscriptions or upload a bank statement and we'll start watching the numbers for you.</p>
    <p class="footer">You're receiving this because an account was created with this address.</p>
  </div>
</body>
</html>
`, html.EscapeString(name))

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Welcome to SubTrack",
		Html:    htmlBody,
	})
	if err == nil {
		m.countSent("welcome")
	}
	return err
}

// SendWeeklyDigest mails one user their spending digest.
func (m *Mailer) SendWeeklyDigest(email string, digest Digest) error {
	if m.client == nil {
		m.logger.Warn("mail client not configured, skipping digest email")
		return nil
	}

	total := money.NewFromFloat(digest.MonthlyTotal, money.USD).Display()

	var recommendations strings.Builder
	for _, rec := range digest.Recommendations {
		fmt.Fprintf(&recommendations, "<li>%s</li>", html.EscapeString(rec))
	}
	recBlock := ""
	if recommendations.Len() > 0 {
		recBlock = fmt.Sprintf(`<p class="label">WORTH A LOOK</p><ul class="recs">%s</ul>`, recommendations.String())
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <style>
    body { background-color: #f6f7f9; font-family: 'Inter', sans-serif; margin: 0; padding: 40px 0; }
    .container { background-color: #ffffff; border: 1px solid #e5e7eb; border-radius: 12px; padding: 40px; max-width: 480px; margin: 0 auto; }
    h1 { color: #111827; font-size: 24px; font-weight: 800; margin: 0 0 20px; }
    .total { color: #111827; font-size: 40px; font-weight: 900; margin: 10px 0; }
    .label { color: #9ca3af; font-size: 11px; font-weight: 700; letter-spacing: 1px; margin-top: 25px; }
    .trend { color: #4b5563; font-size: 16px; }
    .recs { color: #4b5563; font-size: 14px; line-height: 22px; padding-left: 20px; }
    .footer { color: #9ca3af; font-size: 12px; margin-top: 30px; }
  </style>
</head>
<body>
  <div class="container">
    <h1>Hi %s, here's your week.</h1>
    <p class="label">SPEND THIS MONTH</p>
    <p class="total">%s</p>
    <p class="label">TREND</p>
    <p class="trend">Your subscription spending is %s.</p>
    %s
    <p class="footer">Weekly digest from SubTrack. Numbers cover the current billing month.</p>
  </div>
</body>
</html>
`, html.EscapeString(digest.Name), total, trendPhrase(digest.TrendDirection), recBlock)

	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Your weekly SubTrack digest",
		Html:    htmlBody,
	})
	if err == nil {
		m.countSent("digest")
	}
	return err
}

func trendPhrase(direction string) string {
	switch direction {
	case "increasing":
		return "trending up"
	case "decreasing":
		return "trending down"
	default:
		return "holding steady"
	}
}
