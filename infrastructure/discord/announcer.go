package discord

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"rifei/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

const (
	colorSuccess = 0x2ecc71
	cardFileName = "sorteio.png"
)

// MessageSender is the part of the Discord session the announcer needs
type MessageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Announcer posts draw results to a Discord channel
type Announcer struct {
	sender    MessageSender
	channelID string
	cards     *DrawCardRenderer
}

// NewAnnouncer creates an announcer posting to channelID
func NewAnnouncer(sender MessageSender, channelID string) *Announcer {
	return &Announcer{
		sender:    sender,
		channelID: channelID,
		cards:     NewDrawCardRenderer(),
	}
}

// Open creates a bot session. Only the REST API is used so no gateway connection is opened.
func Open(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	return session, nil
}

// AnnounceDraw posts the winner of a completed raffle
func (a *Announcer) AnnounceDraw(ctx context.Context, result *interfaces.RaffleDrawResult) error {
	if result == nil || result.Raffle == nil {
		return fmt.Errorf("empty draw result")
	}

	message := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{CreateDrawEmbed(result)},
	}

	// A card failure still announces the winner as text
	card, err := a.cards.Render(result)
	if err != nil {
		log.WithFields(log.Fields{
			"raffleId": result.Raffle.ID,
			"error":    err,
		}).Warn("Failed to render draw card")
	} else {
		message.Files = []*discordgo.File{{
			Name:        cardFileName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(card),
		}}
		message.Embeds[0].Image = &discordgo.MessageEmbedImage{URL: "attachment://" + cardFileName}
	}

	msg, err := a.sender.ChannelMessageSendComplex(a.channelID, message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post draw result: %w", err)
	}

	log.WithFields(log.Fields{
		"raffleId":  result.Raffle.ID,
		"channelId": a.channelID,
		"messageId": msg.ID,
	}).Info("Posted draw result to Discord")
	return nil
}

// CreateDrawEmbed builds the result embed
func CreateDrawEmbed(result *interfaces.RaffleDrawResult) *discordgo.MessageEmbed {
	raffle := result.Raffle

	winner := "-"
	if raffle.WinnerNumber != nil {
		winner = fmt.Sprintf("**%d**", *raffle.WinnerNumber)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: "Número sorteado", Value: winner, Inline: true},
		{Name: "Vendidos", Value: fmt.Sprintf("%d / %d", raffle.SoldCount, raffle.TotalNumbers), Inline: true},
		{Name: "Bilhetes", Value: fmt.Sprintf("%d", result.TicketCount), Inline: true},
	}
	if raffle.DrawProof != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "Prova do sorteio",
			Value: fmt.Sprintf("`%s`", *raffle.DrawProof),
		})
	}

	timestamp := time.Now()
	if raffle.DrawDate != nil {
		timestamp = *raffle.DrawDate
	}

	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Rifa #%d - %s", raffle.ID, raffle.Title),
		Color:     colorSuccess,
		Fields:    fields,
		Timestamp: timestamp.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: "Sorteio encerrado"},
	}
}
