package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/okian/clerb/internal/adapters/catalog"
	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/domain/model"
	"github.com/okian/clerb/internal/domain/rating"
	"github.com/okian/clerb/internal/domain/spine"
	"github.com/okian/clerb/internal/domain/types"
)

// scoreView sends the raw score with its one-decimal display form.
type scoreView struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

func newScore(v float64) *scoreView {
	return &scoreView{Value: v, Display: decimal.NewFromFloat(v).StringFixed(1)}
}

func optScore(v *float64) *scoreView {
	if v == nil {
		return nil
	}
	return newScore(*v)
}

type memberView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Initials    string    `json:"initials"`
	AvatarColor string    `json:"avatar_color"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMember(m model.Member) memberView {
	return memberView{
		ID:          m.ID,
		Name:        m.Name,
		Initials:    spine.Initials(m.Name),
		AvatarColor: spine.AvatarColor(m.Name),
		CreatedAt:   m.CreatedAt,
	}
}

type bookView struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author,omitempty"`
	CoverURL      string     `json:"cover_url,omitempty"`
	ThumbnailURL  string     `json:"thumbnail_url,omitempty"`
	SpineColor    string     `json:"spine_color"`
	TextColor     string     `json:"text_color"`
	GoogleBooksID string     `json:"google_books_id,omitempty"`
	ISBN          string     `json:"isbn,omitempty"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	PageCount     *int       `json:"page_count,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	AddedBy       string     `json:"added_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toBook(b model.Book) bookView {
	return bookView{
		ID:            b.ID,
		Title:         b.Title,
		Author:        b.Author,
		CoverURL:      b.CoverURL,
		ThumbnailURL:  b.ThumbnailURL,
		SpineColor:    b.SpineColor,
		TextColor:     spine.ContrastColor(b.SpineColor),
		GoogleBooksID: b.GoogleBooksID,
		ISBN:          b.ISBN,
		Description:   b.Description,
		Status:        string(b.Status),
		PageCount:     b.PageCount,
		CompletedAt:   b.CompletedAt,
		AddedBy:       b.AddedBy,
		CreatedAt:     b.CreatedAt,
	}
}

func toBooks(bs []model.Book) []bookView {
	out := make([]bookView, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBook(b))
	}
	return out
}

type ratingView struct {
	ID           string     `json:"id"`
	BookID       string     `json:"book_id"`
	MemberID     string     `json:"member_id"`
	PreRating    *float64   `json:"pre_rating"`
	PostRating   *float64   `json:"post_rating"`
	Score        *scoreView `json:"score"`
	IsVisible    bool       `json:"is_visible"`
	ChangeReason string     `json:"change_reason,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toRating(r model.Rating) ratingView {
	v := ratingView{
		ID:           r.ID,
		BookID:       r.BookID,
		MemberID:     r.MemberID,
		PreRating:    r.PreRating,
		PostRating:   r.PostRating,
		IsVisible:    r.IsVisible,
		ChangeReason: r.ChangeReason,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if s, ok := rating.EffectiveScore(r); ok {
		v.Score = newScore(s)
	}
	return v
}

func toRatings(rs []model.Rating) []ratingView {
	out := make([]ratingView, 0, len(rs))
	for _, r := range rs {
		out = append(out, toRating(r))
	}
	return out
}

type topicView struct {
	ID        string    `json:"id"`
	BookID    string    `json:"book_id"`
	MemberID  string    `json:"member_id,omitempty"`
	Content   string    `json:"content"`
	IsSpoiler bool      `json:"is_spoiler"`
	Hidden    bool      `json:"hidden"`
	CreatedAt time.Time `json:"created_at"`
}

// toTopics masks spoiler content unless reveal is set.
func toTopics(ts []model.DiscussionTopic, reveal bool) []topicView {
	out := make([]topicView, 0, len(ts))
	for _, t := range ts {
		v := topicView{
			ID:        t.ID,
			BookID:    t.BookID,
			MemberID:  t.MemberID,
			Content:   t.Content,
			IsSpoiler: t.IsSpoiler,
			CreatedAt: t.CreatedAt,
		}
		if t.IsSpoiler && !reveal {
			v.Content = ""
			v.Hidden = true
		}
		out = append(out, v)
	}
	return out
}

type meetingView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Location    string    `json:"location,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	BookID      string    `json:"book_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMeeting(m model.Meeting) meetingView {
	return meetingView{
		ID:          m.ID,
		Title:       m.Title,
		ScheduledAt: m.ScheduledAt,
		Location:    m.Location,
		Notes:       m.Notes,
		BookID:      m.BookID,
		CreatedAt:   m.CreatedAt,
	}
}

type attendanceView struct {
	ID        string `json:"id"`
	MeetingID string `json:"meeting_id"`
	MemberID  string `json:"member_id"`
	Status    string `json:"status"`
}

func toAttendance(a model.Attendance) attendanceView {
	return attendanceView{ID: a.ID, MeetingID: a.MeetingID, MemberID: a.MemberID, Status: string(a.Status)}
}

type scoredBookView struct {
	Book    bookView   `json:"book"`
	Average *scoreView `json:"average"`
}

func optScored(s *types.ScoredBook) *scoredBookView {
	if s == nil {
		return nil
	}
	return &scoredBookView{Book: toBook(s.Book), Average: newScore(s.Average)}
}

type entryView struct {
	Rank    int        `json:"rank"`
	BookID  string     `json:"book_id"`
	Title   string     `json:"title"`
	Average *scoreView `json:"average"`
}

type hallOfFameView struct {
	Favorite      *scoredBookView `json:"favorite"`
	LeastFavorite *scoredBookView `json:"least_favorite"`
}

func toHallOfFame(h types.HallOfFame) hallOfFameView {
	return hallOfFameView{Favorite: optScored(h.Favorite), LeastFavorite: optScored(h.LeastFavorite)}
}

type shelfView struct {
	Books      []bookView     `json:"books"`
	Reading    *bookView      `json:"reading"`
	Ranking    []entryView    `json:"ranking"`
	HallOfFame hallOfFameView `json:"hall_of_fame"`
}

func toShelf(s service.Shelf) shelfView {
	out := shelfView{
		Books:      toBooks(s.Books),
		Ranking:    make([]entryView, 0, len(s.Entries)),
		HallOfFame: toHallOfFame(s.HallOfFame),
	}
	if s.Reading != nil {
		b := toBook(*s.Reading)
		out.Reading = &b
	}
	for _, e := range s.Entries {
		out.Ranking = append(out.Ranking, entryView{
			Rank: e.Rank, BookID: e.BookID, Title: e.Title, Average: newScore(e.Average),
		})
	}
	return out
}

type ratedBookView struct {
	BookID string     `json:"book_id"`
	Title  string     `json:"title"`
	Score  *scoreView `json:"score"`
}

type memberStatsView struct {
	Member           memberView      `json:"member"`
	RatedBooks       int             `json:"rated_books"`
	Average          *scoreView      `json:"average"`
	MeetingsAttended int             `json:"meetings_attended"`
	PagesRead        int             `json:"pages_read"`
	Books            []ratedBookView `json:"books"`
}

func toMemberStats(s types.MemberStats) memberStatsView {
	out := memberStatsView{
		Member:           toMember(s.Member),
		RatedBooks:       s.RatedBooks,
		Average:          optScore(s.Average),
		MeetingsAttended: s.MeetingsAttended,
		PagesRead:        s.PagesRead,
		Books:            make([]ratedBookView, 0, len(s.Books)),
	}
	for _, b := range s.Books {
		out.Books = append(out.Books, ratedBookView{BookID: b.Book.ID, Title: b.Book.Title, Score: newScore(b.Score)})
	}
	return out
}

type summaryView struct {
	CompletedBooks int        `json:"completed_books"`
	Members        int        `json:"members"`
	Reading        *bookView  `json:"reading"`
	LastCompleted  *bookView  `json:"last_completed"`
	LastAverage    *scoreView `json:"last_average"`
}

func toSummary(s types.ClubSummary) summaryView {
	out := summaryView{
		CompletedBooks: s.CompletedBooks,
		Members:        s.Members,
		LastAverage:    optScore(s.LastAverage),
	}
	if s.Reading != nil {
		b := toBook(*s.Reading)
		out.Reading = &b
	}
	if s.LastCompleted != nil {
		b := toBook(*s.LastCompleted)
		out.LastCompleted = &b
	}
	return out
}

type breakdownView struct {
	PreAverage  *scoreView `json:"pre_average"`
	PostAverage *scoreView `json:"post_average"`
	Average     *scoreView `json:"average"`
	PreCount    int        `json:"pre_count"`
	PostCount   int        `json:"post_count"`
	Visible     int        `json:"visible"`
	Hidden      int        `json:"hidden"`
}

type bookDetailView struct {
	Book      bookView      `json:"book"`
	Ratings   []ratingView  `json:"ratings"`
	Mine      *ratingView   `json:"mine"`
	Breakdown breakdownView `json:"breakdown"`
	Topics    []topicView   `json:"topics"`
	Covers    []string      `json:"covers"`
}

func toBookDetail(d service.BookDetail, reveal bool) bookDetailView {
	book := toBook(d.Book)
	book.TextColor = d.TextColor
	out := bookDetailView{
		Book:    book,
		Ratings: toRatings(d.Ratings),
		Breakdown: breakdownView{
			PreAverage:  optScore(d.Breakdown.PreAverage),
			PostAverage: optScore(d.Breakdown.PostAverage),
			Average:     optScore(d.Breakdown.Average),
			PreCount:    d.Breakdown.PreCount,
			PostCount:   d.Breakdown.PostCount,
			Visible:     d.Breakdown.Visible,
			Hidden:      d.Breakdown.Hidden,
		},
		Topics: toTopics(d.Topics, reveal),
		Covers: d.Covers,
	}
	if out.Covers == nil {
		out.Covers = []string{}
	}
	if d.Mine != nil {
		m := toRating(*d.Mine)
		out.Mine = &m
	}
	return out
}

type volumeView struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Description   string `json:"description,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	ISBN          string `json:"isbn,omitempty"`
	PageCount     *int   `json:"page_count,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	ThumbnailURL  string `json:"thumbnail_url,omitempty"`
}

func toVolumes(vs []catalog.Volume) []volumeView {
	out := make([]volumeView, 0, len(vs))
	for _, v := range vs {
		out = append(out, volumeView{
			ID:            v.ID,
			Title:         v.VolumeInfo.Title,
			Author:        v.Author(),
			Description:   v.VolumeInfo.Description,
			PublishedDate: v.VolumeInfo.PublishedDate,
			ISBN:          v.ISBN(),
			PageCount:     v.Pages(),
			CoverURL:      catalog.CoverURL(v),
			ThumbnailURL:  catalog.ThumbnailURL(v),
		})
	}
	return out
}
