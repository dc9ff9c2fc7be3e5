package engine

import (
	"strings"
	"time"

	"voice-relations-go/internal/types"
	"voice-relations-go/internal/validate"
)

// resolveAndMerge maps a non-user speaker to a Person record: a
// case-insensitive exact-name match within the account merges the new
// facts, otherwise a fresh profile is created from the validated insight.
func (e *Engine) resolveAndMerge(accountID, name string, sp types.SpeakerInsight, now time.Time) (*types.Person, error) {
	existing, err := e.storage.FindPersonByName(accountID, name)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		p := newPerson(accountID, name, sp.Profile, now)
		if err := e.storage.CreatePerson(p); err != nil {
			return nil, err
		}
		return p, nil
	}

	mergePerson(existing, sp.Profile, now)
	if err := e.storage.UpdatePerson(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// findOrCreateMinimal resolves a person by name, synthesizing a record
// with bare defaults when absent. Used for pending follow-ups so an
// explicitly stated obligation is never silently lost.
func (e *Engine) findOrCreateMinimal(accountID, name string, now time.Time) (*types.Person, error) {
	existing, err := e.storage.FindPersonByName(accountID, name)
	if err == nil {
		return existing, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	p := newPerson(accountID, name, types.RawProfile{}, now)
	if err := e.storage.CreatePerson(p); err != nil {
		return nil, err
	}
	return p, nil
}

func newPerson(accountID, name string, prof types.RawProfile, now time.Time) *types.Person {
	comm := validate.Communication(prof.Communication, now)
	comm.TotalConversations = 1
	comm.ConversationCounter = 1
	return &types.Person{
		AccountID:     accountID,
		Name:          name,
		Initials:      initials(name),
		Relationship:  validate.Relationship(prof.Relationship),
		Communication: comm,
		Sentiment:     validate.Sentiment(prof.Sentiment),
		Profile:       validate.PersonProfile(prof),
	}
}

// mergePerson folds newly observed facts into an existing profile.
// Counters increment, scalars are overwritten only when the incoming
// value is present (frequency additionally must be a valid enum member),
// list fields merge by set union, and importantDates / commonTopics
// append without deduplication.
func mergePerson(p *types.Person, prof types.RawProfile, now time.Time) {
	p.Communication.TotalConversations++
	p.Communication.ConversationCounter++
	p.Communication.LastContacted = &now
	if validate.ValidFrequency(prof.Communication.Frequency) {
		p.Communication.Frequency = prof.Communication.Frequency
	}

	if prof.Summary != "" {
		p.Profile.Summary = prof.Summary
	}
	if prof.Sentiment.Tone != "" {
		p.Sentiment.Tone = validate.Sentiment(prof.Sentiment).Tone
	}
	if prof.Sentiment.ClosenessScore != 0 {
		p.Sentiment.ClosenessScore = validate.Sentiment(prof.Sentiment).ClosenessScore
	}

	incoming := validate.PersonProfile(prof)
	ki := &p.Profile.KeyInfo
	in := incoming.KeyInfo

	ki.Hobbies = union(ki.Hobbies, in.Hobbies)
	ki.Interests = union(ki.Interests, in.Interests)
	ki.Favorites.Movies = union(ki.Favorites.Movies, in.Favorites.Movies)
	ki.Favorites.Music = union(ki.Favorites.Music, in.Favorites.Music)
	ki.Favorites.Books = union(ki.Favorites.Books, in.Favorites.Books)
	ki.Favorites.Food = union(ki.Favorites.Food, in.Favorites.Food)
	ki.Travel = union(ki.Travel, in.Travel)
	ki.PersonalInfo.Relatives = union(ki.PersonalInfo.Relatives, in.PersonalInfo.Relatives)
	ki.PersonalInfo.Pets = union(ki.PersonalInfo.Pets, in.PersonalInfo.Pets)
	ki.PersonalInfo.Location = union(ki.PersonalInfo.Location, in.PersonalInfo.Location)

	if in.WorkInfo.Company != "" {
		ki.WorkInfo.Company = in.WorkInfo.Company
	}
	if in.WorkInfo.Position != "" {
		ki.WorkInfo.Position = in.WorkInfo.Position
	}
	if in.WorkInfo.Industry != "" {
		ki.WorkInfo.Industry = in.WorkInfo.Industry
	}
	if in.PersonalInfo.Birthdate != "" {
		ki.PersonalInfo.Birthdate = in.PersonalInfo.Birthdate
	}

	p.Profile.CommonTopics = append(p.Profile.CommonTopics, incoming.CommonTopics...)
	p.Profile.ImportantDates = append(p.Profile.ImportantDates, incoming.ImportantDates...)
}

// union merges two string sets, keeping first-seen order and dropping
// case-insensitive duplicates.
func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// initials takes the first letter of the first two name words.
func initials(name string) string {
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		b.WriteString(strings.ToUpper(w[:1]))
	}
	return b.String()
}
