package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
	"github.com/abdegenius/cashley-bot/internal/service"
)

// The guided flows walk a user through a purchase or a new schedule one field
// at a time. Keyboard picks (action, provider, plan, unit, frequency) arrive
// as callbacks; free-form fields (recipient, amount, duration, title) arrive
// as plain messages routed here by handleMessage.

type flowMode int

const (
	flowSchedule flowMode = iota
	flowPurchase
)

type flowStep int

const (
	stepAction flowStep = iota
	stepProvider
	stepVariation
	stepRecipient
	stepAmount
	stepDuration
	stepUnit
	stepFrequency
	stepTitle
	stepConfirm
)

type flow struct {
	mode       flowMode
	step       flowStep
	draft      domain.ScheduleDraft
	providers  []cashley.BillService
	variations []cashley.Variation
}

func (b *Bot) getFlow(chatID int64) *flow {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flows[chatID]
}

func (b *Bot) setFlow(chatID int64, f *flow) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f == nil {
		delete(b.flows, chatID)
	} else {
		b.flows[chatID] = f
	}
}

// startFlow begins a guided flow. A preset action skips the action keyboard.
func (b *Bot) startFlow(chatID int64, user *domain.User, mode flowMode, action domain.ActionKind) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	f := &flow{mode: mode, step: stepAction}
	f.draft.Action = action
	b.setFlow(chatID, f)

	if action == "" {
		title := "What do you want to buy?"
		if mode == flowSchedule {
			title = "What should the schedule pay for?"
		}
		b.SendMessageWithKeyboard(chatID, title, actionKeyboard())
		return
	}
	b.flowPickAction(chatID, user, action)
}

// flowPickAction handles the action choice and moves on to provider selection.
func (b *Bot) flowPickAction(chatID int64, user *domain.User, action domain.ActionKind) {
	f := b.getFlow(chatID)
	if f == nil || !action.Valid() {
		return
	}
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	f.draft.Action = action
	providers, err := sess.Billing.Providers(action)
	if err != nil {
		b.setFlow(chatID, nil)
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	if len(providers) == 0 {
		b.setFlow(chatID, nil)
		b.SendMessage(chatID, "No providers available for "+string(action))
		return
	}

	f.providers = providers
	f.step = stepProvider
	b.SendMessageWithKeyboard(chatID, "Pick a provider:", providerKeyboard(providers))
}

// flowPickProvider handles the provider choice.
func (b *Bot) flowPickProvider(chatID int64, user *domain.User, serviceID string) {
	f := b.getFlow(chatID)
	if f == nil || f.step != stepProvider {
		return
	}
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}

	f.draft.Provider = serviceID

	if f.draft.Action.FreeAmount() {
		f.step = stepRecipient
		b.SendMessage(chatID, "Enter the "+strings.ToLower(f.draft.Action.RecipientLabel())+":")
		return
	}

	variations, err := sess.Billing.Variations(serviceID)
	if err != nil {
		b.setFlow(chatID, nil)
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}
	f.variations = variations
	f.step = stepVariation
	b.SendMessageWithKeyboard(chatID, "Pick a plan:", variationKeyboard(variations))
}

// flowPickVariation handles the plan choice for data/TV.
func (b *Bot) flowPickVariation(chatID int64, user *domain.User, code string) {
	f := b.getFlow(chatID)
	if f == nil || f.step != stepVariation {
		return
	}

	f.draft.Variation = code
	f.step = stepRecipient
	b.SendMessage(chatID, "Enter the "+strings.ToLower(f.draft.Action.RecipientLabel())+":")
}

// flowText routes a plain message into the flow's current free-form step.
func (b *Bot) flowText(chatID int64, user *domain.User, text string) {
	f := b.getFlow(chatID)
	if f == nil {
		return
	}

	switch f.step {
	case stepRecipient:
		f.draft.Recipient = text
		if msg, bad := fieldError(f.draft, "recipient"); bad {
			b.SendMessage(chatID, "⚠️ "+msg)
			return
		}
		if f.draft.Action.FreeAmount() {
			f.step = stepAmount
			b.SendMessage(chatID, "Enter the amount:")
			return
		}
		b.afterAmount(chatID, f)

	case stepAmount:
		f.draft.Amount = text
		if msg, bad := fieldError(f.draft, "amount"); bad {
			b.SendMessage(chatID, "⚠️ "+msg)
			return
		}
		b.afterAmount(chatID, f)

	case stepDuration:
		f.draft.Duration = text
		if msg, bad := fieldError(f.draft, "duration"); bad {
			b.SendMessage(chatID, "⚠️ "+msg)
			return
		}
		f.step = stepUnit
		b.SendMessageWithKeyboard(chatID, "Every "+strings.TrimSpace(text)+" of what?", unitKeyboard())

	case stepTitle:
		f.draft.Title = text
		if msg, bad := fieldError(f.draft, "title"); bad {
			b.SendMessage(chatID, "⚠️ "+msg)
			return
		}
		b.finishSchedule(chatID, user, f)

	default:
		// waiting on a keyboard pick; ignore stray text
	}
}

// afterAmount branches by mode once recipient (and amount) are in.
func (b *Bot) afterAmount(chatID int64, f *flow) {
	if f.mode == flowPurchase {
		f.step = stepConfirm
		b.SendMessageWithKeyboard(chatID, b.purchaseSummary(f), confirmKeyboard())
		return
	}
	f.step = stepDuration
	b.SendMessage(chatID, "How often should this run? Enter a number (e.g. 2 for every 2 weeks):")
}

// flowPickUnit handles the duration-unit choice.
func (b *Bot) flowPickUnit(chatID int64, user *domain.User, unit string) {
	f := b.getFlow(chatID)
	if f == nil || f.step != stepUnit {
		return
	}
	if !domain.ValidIntervalUnit(unit) {
		return
	}

	f.draft.DurationUnit = unit
	f.step = stepFrequency
	b.SendMessageWithKeyboard(chatID, "Repeat indefinitely, or run once after this delay?", frequencyKeyboard())
}

// flowPickFrequency handles the once/repeat choice.
func (b *Bot) flowPickFrequency(chatID int64, user *domain.User, freq domain.Frequency) {
	f := b.getFlow(chatID)
	if f == nil || f.step != stepFrequency {
		return
	}

	f.draft.Frequency = freq
	f.step = stepTitle
	b.SendMessage(chatID, "Give this schedule a title (3–100 characters):")
}

// flowConfirm finishes a purchase flow.
func (b *Bot) flowConfirm(chatID int64, user *domain.User) {
	f := b.getFlow(chatID)
	if f == nil || f.step != stepConfirm || f.mode != flowPurchase {
		return
	}
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}
	b.setFlow(chatID, nil)

	tx, err := sess.Billing.Purchase(f.draft.Action, f.draft.Provider, f.draft.Recipient, f.draft.Amount, f.draft.Variation)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	log.Printf("Purchase %s for chat %d: %s", f.draft.Action, chatID, tx.Reference)
	b.SendMessage(chatID, fmt.Sprintf("✅ <b>Purchase successful</b>\n\nReference: <code>%s</code>\nStatus: %s", tx.Reference, tx.Status))
}

func (b *Bot) cancelFlow(chatID int64) {
	if b.getFlow(chatID) != nil {
		b.setFlow(chatID, nil)
		b.SendMessage(chatID, "Cancelled.")
	}
}

// finishSchedule validates the full draft and submits it.
func (b *Bot) finishSchedule(chatID int64, user *domain.User, f *flow) {
	sess := b.session(chatID, user)
	if sess == nil {
		return
	}
	b.setFlow(chatID, nil)

	created, err := sess.Schedules.Create(f.draft)
	if err != nil {
		b.SendMessage(chatID, "❌ "+err.Error())
		return
	}

	log.Printf("Schedule created for chat %d: %s", chatID, created.Reference)
	b.SendMessage(chatID, fmt.Sprintf(
		"✅ <b>Schedule created</b>\n\n%s %s\nEvery %s · %s\nReference: <code>%s</code>",
		actionEmoji(created.Action), created.Title, created.IntervalLabel(), created.Frequency, created.Reference))
}

func (b *Bot) purchaseSummary(f *flow) string {
	var sb strings.Builder
	sb.WriteString("<b>Confirm purchase</b>\n\n")
	sb.WriteString(fmt.Sprintf("%s %s\n", actionEmoji(f.draft.Action), f.draft.Action))
	sb.WriteString(fmt.Sprintf("%s: %s\n", f.draft.Action.RecipientLabel(), f.draft.CleanRecipient()))
	if f.draft.Action.FreeAmount() {
		sb.WriteString("Amount: " + service.FormatAmount(f.draft.Amount, "₦") + "\n")
	} else {
		for _, v := range f.variations {
			if v.VariationCode == f.draft.Variation {
				sb.WriteString(fmt.Sprintf("Plan: %s (%s)\n", v.Name, service.FormatAmount(v.VariationAmount, "₦")))
				break
			}
		}
	}
	return sb.String()
}

// fieldError runs the pure draft validator and picks out one field's message.
func fieldError(draft domain.ScheduleDraft, field string) (string, bool) {
	msg, ok := draft.Validate()[field]
	return msg, ok
}
