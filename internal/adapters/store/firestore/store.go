package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dsiqueira/retroicq/internal/domain"
	"github.com/dsiqueira/retroicq/internal/observability"
)

// Store implements domain.RemoteStore on Firestore. Collections mirror
// the network's layout: `users/{uin}`, `users/{uin}/contacts/{uin}` and
// a flat `messages` collection watched with a bounded query.
type Store struct {
	client *firestore.Client
}

var _ domain.RemoteStore = (*Store)(nil)

// NewStore creates a Firestore store for the given project
// (RETROICQ_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) usersCol() *firestore.CollectionRef {
	return s.client.Collection("users")
}

func (s *Store) userDoc(uin domain.UIN) *firestore.DocumentRef {
	return s.usersCol().Doc(string(uin))
}

func (s *Store) contactsCol(owner domain.UIN) *firestore.CollectionRef {
	return s.userDoc(owner).Collection("contacts")
}

func (s *Store) messagesCol() *firestore.CollectionRef {
	return s.client.Collection("messages")
}

// mapErr translates transport status codes into the domain taxonomy.
func mapErr(op string, err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied:
		return fmt.Errorf("firestore %s: %w", op, domain.ErrPermissionDenied)
	case codes.NotFound:
		return fmt.Errorf("firestore %s: %w", op, domain.ErrNotFound)
	default:
		return fmt.Errorf("firestore %s: %w", op, err)
	}
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userDoc struct {
	UIN      string    `firestore:"uin"`
	Nickname string    `firestore:"nickname"`
	Email    string    `firestore:"email"`
	Status   string    `firestore:"status"`
	LastSeen time.Time `firestore:"lastSeen,serverTimestamp"`
}

type messageDoc struct {
	SenderUIN   string    `firestore:"senderUin"`
	ReceiverUIN string    `firestore:"receiverUin"`
	Text        string    `firestore:"text"`
	Timestamp   time.Time `firestore:"timestamp,serverTimestamp"`
	Read        bool      `firestore:"read"`
}

func toUser(doc userDoc) domain.User {
	return domain.User{
		UIN:      domain.UIN(doc.UIN),
		Nickname: doc.Nickname,
		Email:    doc.Email,
		Presence: domain.ParsePresence(doc.Status),
	}
}

// ─────────────────────────────────────────
// Writes
// ─────────────────────────────────────────

func (s *Store) UpsertProfile(ctx context.Context, user domain.User) error {
	doc := userDoc{
		UIN:      string(user.UIN),
		Nickname: user.Nickname,
		Email:    user.Email,
		Status:   string(user.Presence),
	}

	if _, err := s.userDoc(user.UIN).Set(ctx, doc); err != nil {
		return mapErr("UpsertProfile", err)
	}
	return nil
}

func (s *Store) SetPresence(ctx context.Context, uin domain.UIN, p domain.Presence) error {
	_, err := s.userDoc(uin).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(p)},
	})
	if err != nil {
		return mapErr("SetPresence", err)
	}
	return nil
}

func (s *Store) AddContact(ctx context.Context, owner domain.UIN, contact domain.User) error {
	doc := map[string]interface{}{
		"uin":      string(contact.UIN),
		"nickname": contact.Nickname,
		"email":    contact.Email,
		"status":   string(contact.Presence),
	}

	if _, err := s.contactsCol(owner).Doc(string(contact.UIN)).Set(ctx, doc); err != nil {
		return mapErr("AddContact", err)
	}
	return nil
}

func (s *Store) RemoveContact(ctx context.Context, owner, contact domain.UIN) error {
	if _, err := s.contactsCol(owner).Doc(string(contact)).Delete(ctx); err != nil {
		return mapErr("RemoveContact", err)
	}
	return nil
}

func (s *Store) SendMessage(ctx context.Context, sender, receiver domain.UIN, text string) error {
	doc := messageDoc{
		SenderUIN:   string(sender),
		ReceiverUIN: string(receiver),
		Text:        text,
		Read:        false,
	}

	if _, _, err := s.messagesCol().Add(ctx, doc); err != nil {
		return mapErr("SendMessage", err)
	}
	return nil
}

// ─────────────────────────────────────────
// Feeds
// ─────────────────────────────────────────

func (s *Store) WatchUsers(ctx context.Context, limit int, onSnapshot func([]domain.User), onErr func(error)) (func(), error) {
	return s.watchUserQuery(ctx, "WatchUsers", s.usersCol().Query.Limit(limit), onSnapshot, onErr)
}

func (s *Store) WatchContacts(ctx context.Context, owner domain.UIN, limit int, onSnapshot func([]domain.User), onErr func(error)) (func(), error) {
	return s.watchUserQuery(ctx, "WatchContacts", s.contactsCol(owner).Query.Limit(limit), onSnapshot, onErr)
}

// watchUserQuery streams whole-result snapshots of a user-shaped query.
func (s *Store) watchUserQuery(ctx context.Context, op string, q firestore.Query, onSnapshot func([]domain.User), onErr func(error)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	snaps := q.Snapshots(watchCtx)
	log := observability.WithComponent("store").With("op", op)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				onErr(mapErr(op, err))
				return
			}

			var users []domain.User
			iter := snap.Documents
			for {
				d, err := iter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					onErr(mapErr(op, err))
					return
				}
				var doc userDoc
				if err := d.DataTo(&doc); err != nil {
					log.Warn("skipping undecodable user document", "doc", d.Ref.ID, "error", err)
					continue
				}
				users = append(users, toUser(doc))
			}
			onSnapshot(users)
		}
	}()

	return cancel, nil
}

func (s *Store) WatchMessages(ctx context.Context, limit int, onAdded func(domain.RawMessage), onErr func(error)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	snaps := s.messagesCol().Query.Limit(limit).Snapshots(watchCtx)
	log := observability.WithComponent("store").With("op", "WatchMessages")

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				onErr(mapErr("WatchMessages", err))
				return
			}

			for _, change := range snap.Changes {
				if change.Kind != firestore.DocumentAdded {
					continue
				}
				var doc messageDoc
				if err := change.Doc.DataTo(&doc); err != nil {
					log.Warn("skipping undecodable message document", "doc", change.Doc.Ref.ID, "error", err)
					continue
				}

				// A zero timestamp means the server value has not
				// resolved yet; the pipeline substitutes receipt time.
				var sentAt int64
				if !doc.Timestamp.IsZero() {
					sentAt = doc.Timestamp.UnixMilli()
				}

				onAdded(domain.RawMessage{
					ID:          change.Doc.Ref.ID,
					SenderUIN:   doc.SenderUIN,
					ReceiverUIN: doc.ReceiverUIN,
					Text:        doc.Text,
					SentAt:      sentAt,
					Read:        doc.Read,
				})
			}
		}
	}()

	return cancel, nil
}
