package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/nssukenkyu-prog/scc-reservation/internal/booking"
)

const clinicName = "スポーツキュアセンター横浜・健志台接骨院"

// SMTPMailer sends patient notification mail. It implements booking.Mailer;
// every send is best effort and the caller decides what a failure means.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, pass),
		from:   from,
	}
}

func (m *SMTPMailer) SendConfirmation(ctx context.Context, resv booking.Reservation) error {
	subject := fmt.Sprintf("【予約確定】%s", clinicName)
	body := fmt.Sprintf(`%s 様

ご予約ありがとうございます。以下の内容で予約を承りました。

--------------------------------------------------
■予約日時
%s %s〜%s

■来院区分
%s

■予約ID
%s
--------------------------------------------------

%s`,
		resv.Name,
		resv.Date, resv.StartTime, resv.EndTime,
		visitLabel(resv.VisitType),
		resv.ID,
		clinicName,
	)

	return m.send(ctx, resv.Email, subject, body)
}

func (m *SMTPMailer) SendReminder(ctx context.Context, resv booking.Reservation) error {
	subject := fmt.Sprintf("【予約リマインダー】%s", clinicName)
	body := fmt.Sprintf(`%s 様

明日のご予約のお知らせです。

--------------------------------------------------
■予約日時
%s %s〜%s

■来院区分
%s
--------------------------------------------------

%s`,
		resv.Name,
		resv.Date, resv.StartTime, resv.EndTime,
		visitLabel(resv.VisitType),
		clinicName,
	)

	return m.send(ctx, resv.Email, subject, body)
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func visitLabel(vt booking.VisitType) string {
	switch vt {
	case booking.VisitFirst:
		return "初診"
	case booking.VisitFollowUp:
		return "再診"
	default:
		return "予約"
	}
}
