package negotiation

import (
	"fmt"
	"sort"
	"strings"

	"negotiation-agent/internal/domain/model"
)

// Bucket is the coarse topic of the seller's latest message.
type Bucket string

const (
	BucketOpening    Bucket = "opening"
	BucketGreeting   Bucket = "greeting"
	BucketPrice      Bucket = "price"
	BucketRejection  Bucket = "rejection"
	BucketAcceptance Bucket = "acceptance"
	BucketLogistics  Bucket = "logistics"
	BucketCondition  Bucket = "condition"
	BucketGeneric    Bucket = "generic"

	// bucketUnpriced selects accept templates that carry no buyer price.
	bucketUnpriced Bucket = "unpriced"
)

type BucketDetector struct {
	greeting, price, rejection termSet
	acceptance, logistics      termSet
	condition                  termSet
}

func NewBucketDetector(lex Lexicon) *BucketDetector {
	return &BucketDetector{
		greeting:   compileTerms(lex.Buckets.Greeting),
		price:      compileTerms(lex.Buckets.Price),
		rejection:  compileTerms(lex.Buckets.Rejection),
		acceptance: compileTerms(lex.Buckets.Acceptance),
		logistics:  compileTerms(lex.Buckets.Logistics),
		condition:  compileTerms(lex.Buckets.Condition),
	}
}

// Detect classifies the seller message. An empty message means the buyer
// is opening the conversation.
func (d *BucketDetector) Detect(sellerMessage string) Bucket {
	words := tokenize(sellerMessage)
	switch {
	case len(words) == 0:
		return BucketOpening
	case d.rejection.matchIn(words):
		return BucketRejection
	case d.acceptance.matchIn(words):
		return BucketAcceptance
	case d.logistics.matchIn(words):
		return BucketLogistics
	case d.condition.matchIn(words):
		return BucketCondition
	case d.price.matchIn(words) || len(ExtractPrices(sellerMessage)) > 0:
		return BucketPrice
	case d.greeting.matchIn(words):
		return BucketGreeting
	default:
		return BucketGeneric
	}
}

// TemplateData is interpolated into templates.
type TemplateData struct {
	Offer string
	Title string
}

// TemplateSet maps action/approach/bucket keys to text variants.
// "*" matches any approach or bucket.
type TemplateSet struct {
	byKey map[string][]string
}

func NewTemplateSet(entries map[string][]string) *TemplateSet {
	return &TemplateSet{byKey: entries}
}

func DefaultTemplates() *TemplateSet { return NewTemplateSet(defaultTemplates) }

// Render picks a variant deterministically from round and fills it in.
// It falls back to the generic question when nothing matches.
func (t *TemplateSet) Render(action model.ActionType, approach model.Approach, bucket Bucket, round int, data TemplateData) string {
	variants := t.lookup(action, approach, bucket)
	if len(variants) == 0 {
		variants = t.lookup(model.ActionQuestion, approach, BucketGeneric)
	}
	if len(variants) == 0 {
		return EmergencyMessage
	}
	if round < 0 {
		round = 0
	}
	text := variants[round%len(variants)]
	title := strings.TrimSpace(data.Title)
	if title == "" {
		title = "item"
	}
	return strings.NewReplacer("{offer}", data.Offer, "{title}", title).Replace(text)
}

func (t *TemplateSet) lookup(action model.ActionType, approach model.Approach, bucket Bucket) []string {
	actions := []string{string(action)}
	if action == model.ActionCounterOffer {
		actions = append(actions, string(model.ActionOffer))
	}
	for _, a := range actions {
		for _, key := range []string{
			a + "/" + string(approach) + "/" + string(bucket),
			a + "/*/" + string(bucket),
			a + "/" + string(approach) + "/*",
			a + "/*/*",
		} {
			if v := t.byKey[key]; len(v) > 0 {
				return v
			}
		}
	}
	return nil
}

// Validate checks every key is action/approach/bucket with a known action,
// and that a variant carries {offer} exactly when its action states a price.
func (t *TemplateSet) Validate() error {
	keys := make([]string, 0, len(t.byKey))
	for k := range t.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		parts := strings.Split(key, "/")
		if len(parts) != 3 {
			return fmt.Errorf("template %q: want action/approach/bucket", key)
		}
		action, bucket := model.ActionType(parts[0]), Bucket(parts[2])
		if !action.Valid() {
			return fmt.Errorf("template %q: unknown action %q", key, parts[0])
		}
		if len(t.byKey[key]) == 0 {
			return fmt.Errorf("template %q: no variants", key)
		}
		wantOffer := action.RequiresPrice() || (action == model.ActionAccept && bucket != bucketUnpriced)
		for _, v := range t.byKey[key] {
			if strings.Contains(v, "{offer}") != wantOffer {
				return fmt.Errorf("template %q: variant %q: {offer} placeholder mismatch", key, v)
			}
		}
	}
	return nil
}

const EmergencyMessage = "I'm interested in this product. What's your best price?"

var defaultTemplates = map[string][]string{
	// opening
	"offer/assertive/opening": {
		"Hi, I'm interested in your {title}. I can pay {offer} right away. Can we close at that?",
		"Hello, I'd like to buy your {title}. My offer is {offer}, and I can pick it up quickly.",
	},
	"offer/diplomatic/opening": {
		"Hello! I came across your {title} and I'm quite interested. Would you consider {offer} for it?",
		"Hi! Your {title} looks great. Would {offer} work for you?",
	},
	"offer/considerate/opening": {
		"Hi there, I really like your {title}. My budget is a bit tight, would {offer} work for you?",
		"Hello! I've been looking for a {title} like yours. Could you do {offer}? That's what I can manage.",
	},

	// greeting / availability
	"offer/assertive/greeting": {
		"Good to hear. I'm offering {offer}, and I can collect it quickly.",
	},
	"offer/*/greeting": {
		"Great, thanks for confirming! Would you take {offer} for it?",
		"Thanks for getting back to me. Would {offer} work for you?",
	},

	// price discussion
	"offer/assertive/price": {
		"{offer} is what I'm prepared to pay. Similar ones are listed around that.",
		"I've checked the market, and {offer} is a solid price. I can pay today.",
	},
	"offer/diplomatic/price": {
		"I've looked at similar listings, and {offer} seems fair. Can we agree on that?",
		"How about we meet at {offer}? I think that's fair for both of us.",
	},
	"offer/considerate/price": {
		"I know you've priced it carefully. Could we settle on {offer}? It would really help me.",
		"I understand you want a good price. Could you do {offer}? That's what I can manage right now.",
	},

	// firm price / rejection
	"offer/assertive/rejection": {
		"Understood. I can stretch to {offer}, but that's close to my limit.",
	},
	"offer/diplomatic/rejection": {
		"I hear you. Let me meet you partway: {offer}. Does that work?",
		"I understand. I can go up to {offer} if that helps us reach a deal.",
	},
	"offer/considerate/rejection": {
		"I understand, and I don't want to lowball you. I can raise it to {offer}, would that be okay?",
	},

	// seller sounds agreeable but no price agreed yet
	"offer/*/acceptance": {
		"Great! So we're agreed on {offer}? When can I pick it up?",
		"Wonderful. Shall we lock it in at {offer}?",
	},

	// logistics / pickup
	"offer/*/logistics": {
		"I can collect it myself, so no delivery hassle for you. Would {offer} work with pickup this week?",
		"Pickup is easy for me. If we agree on {offer}, I can come whenever suits you.",
	},

	// condition
	"offer/*/condition": {
		"Thanks for the details on the condition. Considering that, would you accept {offer}?",
		"Appreciate you being upfront about the condition. Would {offer} be fair then?",
	},

	// generic catch-all
	"offer/assertive/*": {
		"I can do {offer}. That's a fair price given what similar listings go for.",
		"My offer is {offer}. I can pick it up today if we agree.",
	},
	"offer/diplomatic/*": {
		"Would {offer} work for you? I'm ready to move forward.",
		"How about {offer}? I think that's a fair middle ground.",
	},
	"offer/considerate/*": {
		"I really appreciate your patience. Would {offer} be possible?",
		"Could you do {offer}? I'd be really grateful.",
	},

	// acceptance confirmation
	"accept/assertive/*": {
		"Done, {offer} it is. Share the pickup details and I'll be there.",
	},
	"accept/*/*": {
		"Deal at {offer}. When is a good time for me to pick it up?",
		"Great, {offer} works for me. Let's arrange the pickup.",
	},
	"accept/considerate/*": {
		"Thank you so much! {offer} works for me. When can I come by?",
	},
	"accept/*/unpriced": {
		"That works for me, let's do it. When can I come to pick it up?",
		"Sounds good, deal. Please share the pickup details.",
	},

	"final_offer/assertive/*": {
		"My final offer is {offer}. That's the most I can do.",
	},
	"final_offer/diplomatic/*": {
		"I've really stretched here. {offer} is my final offer, and I hope we can make it work.",
	},
	"final_offer/considerate/*": {
		"I honestly can't go above {offer}. That's my final offer, and I hope it works for you.",
	},

	"reject/assertive/*": {
		"That's beyond what I'm willing to spend, so I'll pass. Thanks for your time.",
	},
	"reject/*/*": {
		"Thanks for your time, but that's more than I can spend. I'll have to pass for now.",
		"I appreciate it, but I can't go that high. Good luck with the sale.",
	},

	"question/*/condition": {
		"Is everything working fine? Any scratches or issues I should know about?",
	},
	"question/*/logistics": {
		"Where would pickup be? And what's your best price?",
	},
	"question/*/*": {
		EmergencyMessage,
		"Could you tell me a bit more about it? And what's the best price you can do?",
	},
}
