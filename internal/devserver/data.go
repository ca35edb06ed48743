package devserver

import (
	"cmp"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/florianilch/shelf/internal/shelfapi"
)

var (
	errUserExists = errors.New("user exists")
	errNotFound   = errors.New("not found")
)

const notificationNewTitle = "new_title"

type userRecord struct {
	shelfapi.User
	passwordHash []byte
}

type notificationRecord struct {
	shelfapi.Notification
	recipientID int64
}

// db is the server's in-memory state. All methods lock mu.
type db struct {
	mu  sync.Mutex
	now func() time.Time

	nextID        int64
	users         map[int64]*userRecord
	titles        map[int64]*shelfapi.Title
	userTitles    map[int64]*shelfapi.UserTitle
	notifications map[int64]*notificationRecord
	// followers[u] is the set of users following u.
	followers map[int64]map[int64]bool
}

func newDB(now func() time.Time) *db {
	return &db{
		now:           now,
		users:         make(map[int64]*userRecord),
		titles:        make(map[int64]*shelfapi.Title),
		userTitles:    make(map[int64]*shelfapi.UserTitle),
		notifications: make(map[int64]*notificationRecord),
		followers:     make(map[int64]map[int64]bool),
	}
}

func (d *db) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *db) timestamp() string {
	return d.now().UTC().Format(time.RFC3339)
}

func (d *db) createUser(req shelfapi.RegisterRequest) (shelfapi.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return shelfapi.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, u := range d.users {
		if strings.EqualFold(u.Email, req.Email) || u.Login == req.Login {
			return shelfapi.User{}, errUserExists
		}
	}

	u := &userRecord{
		User:         shelfapi.User{ID: d.id(), Email: req.Email, Login: req.Login},
		passwordHash: hash,
	}
	if req.Name != "" {
		name := req.Name
		u.Name = &name
	}
	d.users[u.ID] = u
	return u.User, nil
}

// authenticate accepts a login or an email as username.
func (d *db) authenticate(username, password string) (shelfapi.User, bool) {
	d.mu.Lock()
	var match *userRecord
	for _, u := range d.users {
		if u.Login == username || strings.EqualFold(u.Email, username) {
			match = u
			break
		}
	}
	d.mu.Unlock()

	if match == nil {
		return shelfapi.User{}, false
	}
	if bcrypt.CompareHashAndPassword(match.passwordHash, []byte(password)) != nil {
		return shelfapi.User{}, false
	}
	return match.User, true
}

func (d *db) user(id int64) (shelfapi.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return shelfapi.User{}, errNotFound
	}
	return u.User, nil
}

func (d *db) listUsers(exclude int64, search string, limit, offset int) []shelfapi.User {
	d.mu.Lock()
	defer d.mu.Unlock()

	search = strings.ToLower(search)
	var out []shelfapi.User
	for _, u := range d.users {
		if u.ID == exclude {
			continue
		}
		if search != "" {
			name := ""
			if u.Name != nil {
				name = *u.Name
			}
			if !strings.Contains(strings.ToLower(u.Login), search) && !strings.Contains(strings.ToLower(name), search) {
				continue
			}
		}
		out = append(out, u.User)
	}
	slices.SortFunc(out, func(a, b shelfapi.User) int { return cmp.Compare(a.ID, b.ID) })
	return page(out, limit, offset)
}

func (d *db) setAvatar(userID int64, url string) (shelfapi.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return shelfapi.User{}, errNotFound
	}
	u.AvatarURL = &url
	return u.User, nil
}

func (d *db) follow(follower, following int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.followers[following] == nil {
		d.followers[following] = make(map[int64]bool)
	}
	d.followers[following][follower] = true
}

// findOrCreateTitle matches on external id and category.
func (d *db) findOrCreateTitle(t shelfapi.Title) *shelfapi.Title {
	if t.ExternalID != nil {
		for _, existing := range d.titles {
			if existing.ExternalID != nil && *existing.ExternalID == *t.ExternalID && existing.Category == t.Category {
				return existing
			}
		}
	}
	t.ID = d.id()
	if t.Genres == nil {
		t.Genres = []string{}
	}
	d.titles[t.ID] = &t
	return &t
}

type userTitleInput struct {
	status     shelfapi.UserTitleStatus
	score      *float64
	reviewText *string
	isSpoiler  bool
	finishedAt *string
	notify     bool
}

// upsertUserTitle links a title to a user or updates the existing link.
func (d *db) upsertUserTitle(userID int64, title shelfapi.Title, in userTitleInput) shelfapi.UserTitle {
	d.mu.Lock()
	defer d.mu.Unlock()

	t := d.findOrCreateTitle(title)
	now := d.timestamp()

	var ut *shelfapi.UserTitle
	for _, existing := range d.userTitles {
		if existing.UserID == userID && existing.TitleID == t.ID {
			ut = existing
			break
		}
	}

	isNew := ut == nil
	if isNew {
		ut = &shelfapi.UserTitle{ID: d.id(), UserID: userID, TitleID: t.ID, CreatedAt: now}
		d.userTitles[ut.ID] = ut
	}
	ut.Status = in.status
	ut.Score = in.score
	ut.ReviewText = in.reviewText
	ut.IsSpoiler = in.isSpoiler
	ut.UpdatedAt = now

	switch {
	case in.finishedAt != nil:
		ut.FinishedAt = in.finishedAt
	case in.status == shelfapi.StatusCompleted && ut.FinishedAt == nil:
		ut.FinishedAt = &now
	case in.status != shelfapi.StatusCompleted:
		ut.FinishedAt = nil
	}

	if isNew && in.notify {
		d.notifyFollowers(userID, ut.ID, now)
	}
	return d.hydrate(ut)
}

func (d *db) notifyFollowers(actorID, userTitleID int64, now string) {
	for follower := range d.followers[actorID] {
		n := &notificationRecord{recipientID: follower}
		n.ID = d.id()
		n.Type = notificationNewTitle
		n.CreatedAt = now
		n.UserTitleID = &userTitleID
		d.notifications[n.ID] = n
	}
}

// hydrate copies ut with its title attached.
func (d *db) hydrate(ut *shelfapi.UserTitle) shelfapi.UserTitle {
	out := *ut
	if t, ok := d.titles[ut.TitleID]; ok {
		out.Title = *t
	}
	out.Screenshots = slices.Clone(ut.Screenshots)
	return out
}

func (d *db) titlesOf(userID int64) []shelfapi.UserTitle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []shelfapi.UserTitle{}
	for _, ut := range d.userTitles {
		if ut.UserID == userID {
			out = append(out, d.hydrate(ut))
		}
	}
	slices.SortFunc(out, func(a, b shelfapi.UserTitle) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (d *db) addScreenshot(userID, userTitleID int64, url string) (shelfapi.Screenshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ut, ok := d.userTitles[userTitleID]
	if !ok || ut.UserID != userID {
		return shelfapi.Screenshot{}, errNotFound
	}
	shot := shelfapi.Screenshot{ID: d.id(), URL: url, Position: len(ut.Screenshots)}
	ut.Screenshots = append(ut.Screenshots, shot)
	return shot, nil
}

func (d *db) deleteScreenshot(userID, screenshotID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ut := range d.userTitles {
		if ut.UserID != userID {
			continue
		}
		if i := slices.IndexFunc(ut.Screenshots, func(s shelfapi.Screenshot) bool { return s.ID == screenshotID }); i >= 0 {
			ut.Screenshots = slices.Delete(ut.Screenshots, i, i+1)
			return nil
		}
	}
	return errNotFound
}

// notificationView renders n with its actor and title.
func (d *db) notificationView(n *notificationRecord) shelfapi.Notification {
	out := n.Notification
	if n.UserTitleID == nil {
		return out
	}
	ut, ok := d.userTitles[*n.UserTitleID]
	if !ok {
		return out
	}
	if actor, ok := d.users[ut.UserID]; ok {
		out.Actor = shelfapi.NotificationActor{ID: actor.ID, Login: actor.Login, Name: actor.Name, AvatarURL: actor.AvatarURL}
	}
	if t, ok := d.titles[ut.TitleID]; ok {
		out.Title = &shelfapi.NotificationTitle{ID: t.ID, Name: t.Name, CoverImage: t.CoverImage, Category: string(t.Category)}
	}
	return out
}

// notificationsOf returns the recipient's notifications, newest first.
func (d *db) notificationsOf(recipient int64, limit, offset int) []shelfapi.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := []shelfapi.Notification{}
	for _, n := range d.notifications {
		if n.recipientID == recipient {
			out = append(out, d.notificationView(n))
		}
	}
	slices.SortFunc(out, func(a, b shelfapi.Notification) int {
		return cmp.Or(cmp.Compare(b.CreatedAt, a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return page(out, limit, offset)
}

func (d *db) unreadCount(recipient int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	for _, n := range d.notifications {
		if n.recipientID == recipient && !n.IsRead {
			count++
		}
	}
	return count
}

func (d *db) markRead(recipient, id int64) (shelfapi.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.notifications[id]
	if !ok || n.recipientID != recipient {
		return shelfapi.Notification{}, errNotFound
	}
	n.IsRead = true
	return d.notificationView(n), nil
}

func (d *db) markAllRead(recipient int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range d.notifications {
		if n.recipientID == recipient {
			n.IsRead = true
		}
	}
}

func (d *db) clearRead(recipient int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, n := range d.notifications {
		if n.recipientID == recipient && n.IsRead {
			delete(d.notifications, id)
		}
	}
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
