package main

type seedDraft struct {
	name string
	body string
}

// seedDocument is imported draft by draft; each draft becomes a version.
// A document without drafts stays pending.
type seedDocument struct {
	title    string
	filename string
	drafts   []seedDraft
}

func seedDocuments() []seedDocument {
	return []seedDocument{
		{
			title:    "Quarterly Market Review",
			filename: "review.md",
			drafts: []seedDraft{
				{
					name: "Outline",
					body: `# Quarterly Market Review

## Summary

## Regional performance

## Outlook
`,
				},
				{
					name: "First draft",
					body: `# Quarterly Market Review

## Summary

Revenue grew **12%** quarter over quarter, led by the enterprise segment.

## Regional performance

- North America: steady growth in renewals
- Europe: two new distribution partners
- Asia-Pacific: pilot programs converted to paid contracts

## Outlook

We expect *moderate* growth next quarter as seasonal demand softens.
`,
				},
			},
		},
		{
			title:    "Onboarding Guide",
			filename: "onboarding.html",
			drafts: []seedDraft{
				{
					name: "Imported",
					body: `<h1>Onboarding Guide</h1>
<p>Welcome to the team! This guide covers your first week.</p>
<h2>Day one</h2>
<ol>
  <li><p>Collect your laptop from IT.</p></li>
  <li><p>Set up two-factor authentication.</p></li>
  <li><p>Join the team channels.</p></li>
</ol>
<blockquote><p>Ask questions early and often.</p></blockquote>`,
				},
			},
		},
		{
			title:    "Meeting Notes",
			filename: "notes.txt",
			drafts: []seedDraft{
				{
					name: "Raw notes",
					body: "Decided to move the launch to next month.\n\nOwners: design review by Friday, QA sign-off the week after.",
				},
			},
		},
		{
			title: "The History of Tea Trade Routes",
		},
	}
}
