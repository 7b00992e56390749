package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arloliu/mdwire/tape"
	"github.com/rs/zerolog"
)

// printer is a Sink that writes one line per record.
type printer struct {
	w      io.Writer
	store  *tape.Store
	loc    *time.Location
	logger zerolog.Logger
	limit  int
	stop   func()

	n    int
	next uint64
	done *tape.Status
}

func newPrinter(w io.Writer, store *tape.Store, logger zerolog.Logger) *printer {
	return &printer{w: w, store: store, loc: store.Location(), logger: logger}
}

func (p *printer) OnRecord(rec *tape.Record) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s/%s %s",
		rec.Time.In(p.loc).Format("2006-01-02 15:04:05.000"),
		rec.Service, rec.Ticker, rec.Header.MsgType)

	for _, f := range rec.Fields {
		name := fmt.Sprintf("%d", f.ID)
		if e, ok := p.store.FieldByID(f.ID); ok {
			name = e.Name
		}
		fmt.Fprintf(&sb, " %s=%s", name, f.String())
	}
	sb.WriteByte('\n')
	_, _ = io.WriteString(p.w, sb.String())

	p.n++
	if p.limit > 0 && p.n >= p.limit && p.stop != nil {
		p.stop()
	}
}

func (p *printer) OnStatus(st *tape.Status) {
	switch st.Kind {
	case tape.StatusDead:
		fmt.Fprintf(p.w, "%s/%s: %s\n", st.Service, st.Ticker, st.Text)
	case tape.StatusError:
		fmt.Fprintf(p.w, "error: %s\n", st.Text)
	case tape.StatusProgress:
		p.logger.Debug().Str("ticker", st.Ticker).Msg(st.Text)
	case tape.StatusStreamDone:
		cp := *st
		p.done = &cp
		p.next = st.Offset
		fmt.Fprintf(p.w, "-- %s, %d records\n", st.Text, p.n)
	}
}
