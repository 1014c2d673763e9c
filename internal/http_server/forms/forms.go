// Package forms decodes the link post forms shared by several handlers.
package forms

import (
	"net/http"

	"link_scheduler/internal/scheduler"
)

// Link is the part of every post form that is sent to Reddit.
type Link struct {
	Title     string `validate:"required,max=300"`
	Subreddit string `validate:"required,max=100"`
	URL       string `validate:"required,url"`
}

// Post is a scheduled link. SendReplies is set when the checkbox field is present at all.
type Post struct {
	Link
	SendReplies bool
	Date        string `validate:"required"`
}

func DecodeLink(r *http.Request) (Link, error) {
	if err := r.ParseForm(); err != nil {
		return Link{}, err
	}

	return linkFrom(r), nil
}

func DecodePost(r *http.Request) (Post, error) {
	if err := r.ParseForm(); err != nil {
		return Post{}, err
	}

	_, sendReplies := r.PostForm["sendreplies"]

	return Post{
		Link:        linkFrom(r),
		SendReplies: sendReplies,
		Date:        r.PostForm.Get("date"),
	}, nil
}

func (p Post) Input() scheduler.PostInput {
	return scheduler.PostInput{
		Title:       p.Title,
		Subreddit:   p.Subreddit,
		URL:         p.URL,
		SendReplies: p.SendReplies,
		Date:        p.Date,
	}
}

func linkFrom(r *http.Request) Link {
	return Link{
		Title:     r.PostForm.Get("title"),
		Subreddit: r.PostForm.Get("sr"),
		URL:       r.PostForm.Get("url"),
	}
}
