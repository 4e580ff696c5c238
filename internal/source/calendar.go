package source

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// Calendar walks backwards one UTC day at a time, starting today. It never
// exhausts.
type Calendar struct {
	tmpl   *urlTemplates
	now    func() time.Time
	cursor time.Time
	log    zerolog.Logger
}

// NewCalendar builds a calendar walk over family. A nil now uses time.Now.
func NewCalendar(family Family, now func() time.Time) (*Calendar, error) {
	tmpl, err := family.compile()
	if err != nil {
		return nil, err
	}

	if now == nil {
		now = time.Now
	}

	return &Calendar{
		tmpl: tmpl,
		now:  now,
		log:  log.With().Str("component", "calendar").Logger(),
	}, nil
}

func (c *Calendar) Kind() string {
	return "Date"
}

func (c *Calendar) Next() (Step, bool) {
	if c.cursor.IsZero() {
		y, m, d := c.now().UTC().Date()
		c.cursor = time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}

	c.cursor = c.cursor.AddDate(0, 0, -1)
	label := c.cursor.Format(dateLayout)

	step, err := c.tmpl.step(label, "")
	if err != nil {
		c.log.Error().Err(err).Str("label", label).Msg("failed to build step")
		return Step{}, false
	}

	return step, true
}
