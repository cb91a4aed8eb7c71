package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/clerb/internal/adapters/catalog"
	"github.com/okian/clerb/internal/adapters/changefeed"
	service "github.com/okian/clerb/internal/app"
	"github.com/okian/clerb/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration_SpineColors(t *testing.T) {
	Convey("Given a started service with a fixed extractor", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		broker := changefeed.NewBroker()
		store := newStore(t, broker)
		svc := service.New(store,
			service.WithBroker(broker),
			service.WithWorkerCount(2),
			service.WithQueueSize(100),
			service.WithExtractor(fixedExtractor{color: "rgb(10, 20, 30)"}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		ana, err := svc.CreateMember(ctx, "Ana")
		So(err, ShouldBeNil)

		Convey("When adding books with covers", func() {
			var ids []string
			for i := 0; i < 5; i++ {
				b, err := svc.AddBook(ctx, ana.ID, service.NewBook{
					Title:        fmt.Sprintf("Book %d", i),
					ThumbnailURL: fmt.Sprintf("https://img.example/%d.jpg", i),
				})
				So(err, ShouldBeNil)
				ids = append(ids, b.ID)
			}

			Convey("Then every book gets its extracted spine color", func() {
				ok := eventually(func() bool {
					for _, id := range ids {
						b, err := store.GetBook(ctx, id)
						if err != nil || b.SpineColor != "rgb(10, 20, 30)" {
							return false
						}
					}
					return true
				})
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When adding a book without images", func() {
			b, err := svc.AddBook(ctx, ana.ID, service.NewBook{Title: "Plain"})
			So(err, ShouldBeNil)

			Convey("Then it keeps the default spine color", func() {
				svc.Stop()
				got, err := store.GetBook(ctx, b.ID)
				So(err, ShouldBeNil)
				So(got.SpineColor, ShouldEqual, model.DefaultSpineColor)
			})
		})
	})
}

func TestServiceIntegration_StopDrainsAfterStartContextEnds(t *testing.T) {
	Convey("Given a service with one slow worker", t, func() {
		ctx := context.Background()
		store := newStore(t, nil)
		svc := service.New(store,
			service.WithWorkerCount(1),
			service.WithQueueSize(16),
			service.WithExtractor(slowExtractor{color: "rgb(40, 50, 60)", delay: 20 * time.Millisecond}),
		)
		startCtx, cancelStart := context.WithCancel(ctx)
		So(svc.Start(startCtx), ShouldBeNil)

		ana, err := svc.CreateMember(ctx, "Ana")
		So(err, ShouldBeNil)

		var ids []string
		for i := 0; i < 5; i++ {
			b, err := svc.AddBook(ctx, ana.ID, service.NewBook{
				Title:        fmt.Sprintf("Slow %d", i),
				ThumbnailURL: fmt.Sprintf("https://img.example/slow-%d.jpg", i),
			})
			So(err, ShouldBeNil)
			ids = append(ids, b.ID)
		}

		Convey("When the start context ends before Stop", func() {
			cancelStart()
			svc.Stop()

			Convey("Then every queued book still gets its sampled color", func() {
				for _, id := range ids {
					b, err := store.GetBook(ctx, id)
					So(err, ShouldBeNil)
					So(b.SpineColor, ShouldEqual, "rgb(40, 50, 60)")
				}
			})
		})
	})
}

func TestServiceIntegration_ChangeFeed(t *testing.T) {
	Convey("Given a service whose store publishes to the broker", t, func() {
		ctx := context.Background()
		broker := changefeed.NewBroker()
		svc := service.New(newStore(t, broker), service.WithBroker(broker))

		ana, err := svc.CreateMember(ctx, "Ana")
		So(err, ShouldBeNil)
		book, err := svc.AddBook(ctx, ana.ID, service.NewBook{Title: "Dune"})
		So(err, ShouldBeNil)

		changes, cancel := svc.Subscribe(changefeed.Filter{Tables: []string{model.TableRatings}, BookID: book.ID})
		defer cancel()
		So(svc.GetStats()["subscribers"], ShouldEqual, 1)

		Convey("When a rating is submitted", func() {
			_, err := svc.SubmitPreRating(ctx, ana.ID, book.ID, 8)
			So(err, ShouldBeNil)

			Convey("Then the subscriber is told about it", func() {
				select {
				case c := <-changes:
					So(c.Table, ShouldEqual, model.TableRatings)
					So(c.Op, ShouldEqual, model.OpInsert)
					So(c.BookID, ShouldEqual, book.ID)
				case <-time.After(time.Second):
					So("no change received", ShouldBeEmpty)
				}
			})
		})

		Convey("When an unrelated row changes", func() {
			_, err := svc.CreateMember(ctx, "Ben")
			So(err, ShouldBeNil)

			Convey("Then nothing is delivered", func() {
				select {
				case c := <-changes:
					So(c, ShouldBeNil)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})
	})
}

func TestServiceIntegration_Catalog(t *testing.T) {
	Convey("Given a service with catalog and edition providers", t, func() {
		ctx := context.Background()
		cat := &fakeCatalog{volumes: map[string]catalog.Volume{
			"vol-1": {
				ID: "vol-1",
				VolumeInfo: catalog.VolumeInfo{
					Title:   "Dune",
					Authors: []string{"Frank Herbert"},
					IndustryIdentifiers: []catalog.IndustryIdentifier{
						{Type: "ISBN_13", Identifier: "9780441013593"},
					},
					ImageLinks: &catalog.ImageLinks{
						Thumbnail: "http://books.google.com/books/content?id=vol-1&zoom=1",
					},
				},
			},
			"vol-2": {
				ID: "vol-2",
				VolumeInfo: catalog.VolumeInfo{
					Title:     "Emma",
					PageCount: float64(474),
				},
			},
		}}
		editions := &fakeEditions{pages: map[string]any{"9780441013593": "412 pages"}}
		store := newStore(t, nil)
		svc := service.New(store, service.WithCatalog(cat), service.WithEditions(editions))
		ana, _ := svc.CreateMember(ctx, "Ana")

		Convey("Adding a volume without pages fills them from its edition", func() {
			b, err := svc.AddFromCatalog(ctx, ana.ID, "vol-1", model.StatusUpcoming)
			So(err, ShouldBeNil)
			So(b.Title, ShouldEqual, "Dune")
			So(b.Author, ShouldEqual, "Frank Herbert")
			So(b.ISBN, ShouldEqual, "9780441013593")
			So(b.PageCount, ShouldNotBeNil)
			So(*b.PageCount, ShouldEqual, 412)
			So(b.CoverURL, ShouldEqual, "https://books.google.com/books/content?id=vol-1&zoom=2")
		})

		Convey("A volume's own page count wins", func() {
			b, err := svc.AddFromCatalog(ctx, ana.ID, "vol-2", "")
			So(err, ShouldBeNil)
			So(*b.PageCount, ShouldEqual, 474)
			So(b.Author, ShouldEqual, "Unknown")
		})

		Convey("Unknown volumes are not found", func() {
			_, err := svc.AddFromCatalog(ctx, ana.ID, "vol-9", "")
			So(err, ShouldNotBeNil)
		})

		Convey("Book detail fills a missing description from the catalog", func() {
			cat.volumes["vol-3"] = catalog.Volume{ID: "vol-3", VolumeInfo: catalog.VolumeInfo{Description: "A desert planet."}}
			b, err := svc.AddBook(ctx, ana.ID, service.NewBook{Title: "Dune", GoogleBooksID: "vol-3"})
			So(err, ShouldBeNil)
			d, err := svc.BookDetail(ctx, ana.ID, b.ID)
			So(err, ShouldBeNil)
			So(d.Book.Description, ShouldEqual, "A desert planet.")
		})

		Convey("Book detail backfills a missing page count by ISBN", func() {
			b, err := svc.AddBook(ctx, ana.ID, service.NewBook{Title: "Dune", ISBN: "9780441013593"})
			So(err, ShouldBeNil)
			So(b.PageCount, ShouldBeNil)

			d, err := svc.BookDetail(ctx, ana.ID, b.ID)
			So(err, ShouldBeNil)
			So(*d.Book.PageCount, ShouldEqual, 412)

			stored, err := store.GetBook(ctx, b.ID)
			So(err, ShouldBeNil)
			So(stored.PageCount, ShouldNotBeNil)
			So(*stored.PageCount, ShouldEqual, 412)
		})

		Convey("Search goes to the catalog", func() {
			vs, err := svc.SearchCatalog(ctx, "Emma")
			So(err, ShouldBeNil)
			So(len(vs), ShouldEqual, 1)
			So(vs[0].ID, ShouldEqual, "vol-2")
		})
	})
}

func TestServiceIntegration_ShelfAndStats(t *testing.T) {
	Convey("Given a club that finished three books", t, func() {
		ctx := context.Background()
		svc := service.New(newStore(t, nil))

		ana, _ := svc.CreateMember(ctx, "Ana")
		ben, _ := svc.CreateMember(ctx, "Ben")
		cy, _ := svc.CreateMember(ctx, "Cy")

		add := func(title string, pages int) model.Book {
			b, err := svc.AddBook(ctx, ana.ID, service.NewBook{
				Title:     title,
				Status:    model.StatusCompleted,
				PageCount: ptr(pages),
			})
			So(err, ShouldBeNil)
			return b
		}
		rate := func(m model.Member, b model.Book, pre float64, post *float64, visible bool) {
			r, err := svc.SubmitPreRating(ctx, m.ID, b.ID, pre)
			So(err, ShouldBeNil)
			if post != nil {
				_, err = svc.SubmitPostRating(ctx, m.ID, b.ID, *post, "")
				So(err, ShouldBeNil)
			}
			if visible {
				_, err = svc.SetRatingVisibility(ctx, m.ID, r.ID, true)
				So(err, ShouldBeNil)
			}
		}

		dune := add("Dune", 412)
		emma := add("Emma", 474)
		ulysses := add("Ulysses", 730)
		upcoming, _ := svc.AddBook(ctx, ana.ID, service.NewBook{Title: "Next", PageCount: ptr(100)})

		rate(ana, dune, 7, ptr(9.0), true)
		rate(ben, dune, 8, nil, true)
		rate(ana, emma, 6, nil, true)
		rate(ben, ulysses, 2, nil, true)
		rate(cy, ulysses, 10, nil, false)
		rate(cy, upcoming, 5, nil, false)

		Convey("The shelf ranks completed books by visible average", func() {
			shelf, err := svc.Shelf(ctx)
			So(err, ShouldBeNil)
			So(len(shelf.Books), ShouldEqual, 4)
			So(len(shelf.Entries), ShouldEqual, 3)
			So(shelf.Entries[0].BookID, ShouldEqual, dune.ID)
			So(shelf.Entries[0].Average, ShouldEqual, 8.5)

			So(shelf.HallOfFame.Favorite.Book.ID, ShouldEqual, dune.ID)
			So(shelf.HallOfFame.LeastFavorite.Book.ID, ShouldEqual, ulysses.ID)
			So(shelf.HallOfFame.LeastFavorite.Average, ShouldEqual, 2)

			So(shelf.Entries[0].Rank, ShouldEqual, 1)
			So(shelf.Entries[2].BookID, ShouldEqual, ulysses.ID)
		})

		Convey("Member stats count rated books and completed pages", func() {
			st, err := svc.MemberStats(ctx, cy.ID)
			So(err, ShouldBeNil)
			So(st.RatedBooks, ShouldEqual, 2)
			So(*st.Average, ShouldEqual, 7.5)
			So(st.PagesRead, ShouldEqual, 730)
		})

		Convey("All member stats come back in name order", func() {
			next, err := svc.CreateMeeting(ctx, model.Meeting{Title: "Dune night", ScheduledAt: time.Now().Add(time.Hour)})
			So(err, ShouldBeNil)
			_, err = svc.RSVP(ctx, ben.ID, next.ID, model.RSVPGoing)
			So(err, ShouldBeNil)

			all, err := svc.AllMemberStats(ctx)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(all[0].Member.Name, ShouldEqual, "Ana")
			So(all[0].RatedBooks, ShouldEqual, 2)
			So(*all[0].Average, ShouldEqual, 7.5)
			So(all[0].PagesRead, ShouldEqual, 412+474)
			So(all[1].Member.ID, ShouldEqual, ben.ID)
			So(all[1].MeetingsAttended, ShouldEqual, 1)
			So(all[2].MeetingsAttended, ShouldEqual, 0)
		})

		Convey("The summary reports the latest completed book", func() {
			sum, err := svc.Summary(ctx)
			So(err, ShouldBeNil)
			So(sum.CompletedBooks, ShouldEqual, 3)
			So(sum.Members, ShouldEqual, 3)
			So(sum.Reading, ShouldBeNil)
			So(sum.LastCompleted, ShouldNotBeNil)
		})
	})
}
