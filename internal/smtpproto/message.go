package smtpproto

// Envelope holds the MAIL FROM sender and the RCPT TO recipients
// accumulated before the message body begins.
type Envelope struct {
	From       string
	Recipients []string
}
