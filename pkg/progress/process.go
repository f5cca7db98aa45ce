package progress

import "fmt"

type ProcessReporter struct {
	*Reporter
	ProgressCount int
	TotalCount    int
	Template      ProcessTemplate
}

type ProcessTemplate struct {
	PresentAction string // Present tense of the action e.g. "processing"
	PastAction    string // Past tense of the action e.g. "processed"
	Subject       string // The subject being processed in plural form e.g. "files"
}

func (r *Reporter) NewProcess(total int, template ProcessTemplate) *ProcessReporter {
	return &ProcessReporter{
		Reporter:   r,
		TotalCount: total,
		Template:   template,
	}
}

func (p *ProcessReporter) Start() {
	p.Reporter.Heading(fmt.Sprintf("%s %d %s", capitalise(p.Template.PresentAction), p.TotalCount, p.Template.Subject))
}

// Step announces the next item and advances the count.
func (p *ProcessReporter) Step(item string) {
	p.ProgressCount++
	p.Reporter.Progress("[%d/%d] %s %s", p.ProgressCount, p.TotalCount, p.Template.PresentAction, item)
}

func (p *ProcessReporter) Done() {
	p.Reporter.Progress("%s %d/%d %s", p.Template.PastAction, p.ProgressCount, p.TotalCount, p.Template.Subject)
}

func capitalise(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}

	return string(s[0]-'a'+'A') + s[1:]
}
