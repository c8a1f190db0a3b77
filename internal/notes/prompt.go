package notes

import "fmt"

const soapPromptTemplate = `
You are a medical documentation assistant specializing in creating accurate SOAP notes from doctor-patient conversations.

Based on the following medical conversation transcript between a doctor and patient, create a professional SOAP note.

SOAP Format:
- SUBJECTIVE: Patient's symptoms, complaints, and history in their own words
- OBJECTIVE: Observable, measurable findings (vital signs, physical exam, test results)
- ASSESSMENT: Medical diagnosis or clinical impression
- PLAN: Treatment plan, medications, follow-up instructions

Transcript:
%s

Please format the SOAP note professionally with clear sections. If any section lacks information from the transcript, note "Not documented in visit" for that section.

Create a well-structured SOAP note now:
`

// SOAPPrompt builds the generation prompt for a transcript
func SOAPPrompt(transcript string) string {
	return fmt.Sprintf(soapPromptTemplate, transcript)
}
