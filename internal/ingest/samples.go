package ingest

import "github.com/hyperjump/lexsy/internal/models"

// DemoThreadID identifies records ingested from the demonstration thread.
// It cannot collide with provider thread ids, which are hexadecimal.
const DemoThreadID = "demo-thread"

// SampleEmails returns the demonstration email batch.
func SampleEmails() []models.EmailMessage {
	return []models.EmailMessage{
		{
			Subject:   "Contract Review Request",
			Sender:    "client@example.com",
			Recipient: "legal@lexsy.com",
			Body:      "Hi, please review the attached service agreement. We need this completed by end of week.",
			DateSent:  "2025-07-20",
		},
		{
			Subject:   "Re: Contract Review Request",
			Sender:    "legal@lexsy.com",
			Recipient: "client@example.com",
			Body:      "Thanks for sending this. I have reviewed the agreement and have some concerns about the liability clauses in section 4.",
			DateSent:  "2025-07-21",
		},
		{
			Subject:   "Compliance Question",
			Sender:    "client@example.com",
			Recipient: "legal@lexsy.com",
			Body:      "Do we need to file any additional paperwork for the new state registration?",
			DateSent:  "2025-07-22",
		},
	}
}

// DemoThread returns the demonstration mail thread used when the mail
// provider is unavailable.
func DemoThread() []models.EmailMessage {
	msgs := []models.EmailMessage{
		{
			Subject:   "Advisor Agreement - Equity Terms",
			Sender:    "client@example.com",
			Recipient: "legal@lexsy.com",
			Body:      "We would like to bring on a new advisor with 0.5% equity vesting monthly over two years. Can you draft the advisor agreement?",
			DateSent:  "2025-07-23",
			MessageID: "demo-1",
		},
		{
			Subject:   "Re: Advisor Agreement - Equity Terms",
			Sender:    "legal@lexsy.com",
			Recipient: "client@example.com",
			Body:      "Happy to help. Please confirm the board has approved the grant and whether there is a one-month cliff before vesting starts.",
			DateSent:  "2025-07-24",
			MessageID: "demo-2",
		},
		{
			Subject:   "Re: Advisor Agreement - Equity Terms",
			Sender:    "client@example.com",
			Recipient: "legal@lexsy.com",
			Body:      "The board approved the grant yesterday. No cliff, and the advisor should sign a standard confidentiality and IP assignment agreement.",
			DateSent:  "2025-07-25",
			MessageID: "demo-3",
		},
	}
	for i := range msgs {
		msgs[i].ThreadID = DemoThreadID
	}
	return msgs
}
