package extractor

// The label prefixes below must match the ones in instructionPrompt exactly;
// ParseFields only recognises lines that start with them.
const (
	LabelEventName = "Event name:"
	LabelLocation  = "Location of the event:"
	LabelDateTime  = "Date and time:"
	LabelValidDays = "Days during which the ticket is valid:"
)

const instructionPrompt = `Extract the following information from the image of this ticket. ` +
	`Answer with exactly these lines and nothing else, no formatting:
Event name: <name>
Location of the event: <location>
Date and time: <HH:DD:MM:YYYY>
(if the event takes place over multiple days:)
Days during which the ticket is valid: <DD:MM to DD:MM>`
