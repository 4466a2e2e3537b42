package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/domain"
	"github.com/xoelrdgz/trafficradar/internal/ports"
)

const (
	MsgSniffingStarted      = "Packet sniffing started"
	MsgSniffingFailed       = "Failed to start packet sniffing"
	msgUnblockFailedPattern = "Failed to unblock IP: %s"
)

// PollController is the part of the poller the dispatcher drives.
type PollController interface {
	Refresh() bool
	MarkSniffing()
}

// Dispatcher issues user commands to the detection service and reports
// their outcome as notifications.
type Dispatcher struct {
	svc      ports.DetectionService
	poller   PollController
	notifier ports.Notifier
}

func NewDispatcher(svc ports.DetectionService, poller PollController, notifier ports.Notifier) *Dispatcher {
	return &Dispatcher{svc: svc, poller: poller, notifier: notifier}
}

// RequestStartSniffing asks the service to start capture. On success the
// sniffing flag is set; no poll is triggered.
func (d *Dispatcher) RequestStartSniffing(ctx context.Context) (domain.Ack, error) {
	ack, err := d.svc.StartSniffing(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Start sniffing failed")
		d.notify(domain.NotificationError, domain.ActionStartSniffing, "", MsgSniffingFailed)
		return domain.Ack{}, fmt.Errorf("start sniffing: %w", err)
	}

	if d.poller != nil {
		d.poller.MarkSniffing()
	}
	log.Info().Str("ack", ack.Message).Msg("Packet sniffing started")
	d.notify(domain.NotificationSuccess, domain.ActionStartSniffing, "", MsgSniffingStarted)
	return ack, nil
}

// RequestUnblock asks the service to unblock ip. On success exactly one
// out-of-schedule poll is requested so the change shows up right away.
func (d *Dispatcher) RequestUnblock(ctx context.Context, ip string) (domain.Ack, error) {
	ack, err := d.svc.UnblockIP(ctx, ip)
	if err != nil {
		log.Error().Err(err).Str("ip", ip).Msg("Unblock failed")
		d.notify(domain.NotificationError, domain.ActionUnblock, ip, fmt.Sprintf(msgUnblockFailedPattern, ip))
		return domain.Ack{}, fmt.Errorf("unblock %s: %w", ip, err)
	}

	message := ack.Message
	if message == "" {
		message = fmt.Sprintf("IP %s unblocked.", ip)
	}
	log.Info().Str("ip", ip).Str("ack", message).Msg("Unblock acknowledged")
	d.notify(domain.NotificationSuccess, domain.ActionUnblock, ip, message)

	if d.poller != nil {
		d.poller.Refresh()
	}
	return ack, nil
}

func (d *Dispatcher) notify(level domain.NotificationLevel, action domain.Action, target, message string) {
	if d.notifier == nil {
		return
	}
	d.notifier.OnNotification(domain.NewNotification(level, action, target, message))
}
