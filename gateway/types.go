package gateway

import "io"

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

type Lab struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ShortDesc     string `json:"shortDesc"`
	CreatedAt     string `json:"createdAt"`
	Views         int64  `json:"views"`
	Submissions   int64  `json:"submissions"`
	AuthorID      int64  `json:"authorId"`
	AuthorName    string `json:"authorName"`
	AuthorSurname string `json:"authorSurname"`
}

type LabList struct {
	Labs       []Lab      `json:"labs"`
	Pagination Pagination `json:"pagination"`
}

// Created acknowledges a lab or article upload.
type Created struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// Asset is a file attached to a lab or a submission.
type Asset struct {
	AssetID      int64  `json:"assetId"`
	LabID        int64  `json:"labId,omitempty"`
	SubmissionID int64  `json:"submissionId,omitempty"`
	Filename     string `json:"filename"`
	TotalSize    int64  `json:"totalSize"`
	UploadDate   string `json:"uploadDate"`
}

type AssetList struct {
	TotalCount int64   `json:"totalCount"`
	Assets     []Asset `json:"assets"`
}

// Profile is the public user shape returned by the gateway. It differs from
// the auth service's userInfo.
type Profile struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Surname      string `json:"surname"`
	Email        string `json:"email"`
	LabsSolved   int    `json:"labs_solved"`
	LabsReviewed int    `json:"labs_reviewed"`
	Balance      int    `json:"balance"`
}

type Submission struct {
	SubmissionID int64    `json:"submissionId"`
	LabID        int64    `json:"labId"`
	Owner        *Profile `json:"owner,omitempty"`
	Text         string   `json:"text"`
	CreatedAt    string   `json:"createdAt"`
	UpdatedAt    string   `json:"updatedAt"`
	Status       string   `json:"status"`
	Assets       []Asset  `json:"assets"`
}

type SubmissionList struct {
	Submissions []Submission `json:"submissions"`
	TotalCount  int64        `json:"totalCount"`
}

type CreateSubmissionResponse struct {
	Success            bool        `json:"success"`
	Message            string      `json:"message"`
	SubmissionMetadata *Submission `json:"submissionMetadata"`
}

type Article struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ShortDesc     string `json:"shortDesc"`
	CreatedAt     string `json:"createdAt"`
	Views         int64  `json:"views"`
	AuthorID      int64  `json:"authorId"`
	AuthorName    string `json:"authorName"`
	AuthorSurname string `json:"authorSurname"`
}

type ArticleList struct {
	Articles   []Article  `json:"articles"`
	Pagination Pagination `json:"pagination"`
}

type Comment struct {
	ID        string `json:"id"`
	LabID     int64  `json:"labId"`
	UserID    int64  `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ParentID  string `json:"parentId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CommentList struct {
	Comments   []Comment  `json:"comments"`
	Pagination Pagination `json:"pagination"`
}

type FeedbackAttachment struct {
	FeedbackID  string `json:"feedbackId"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	TotalSize   int64  `json:"totalSize"`
}

type Feedback struct {
	ID           string               `json:"id"`
	SubmissionID int64                `json:"submissionId"`
	Student      *Profile             `json:"student,omitempty"`
	Reviewer     *Profile             `json:"reviewer,omitempty"`
	Content      string               `json:"content"`
	CreatedAt    string               `json:"createdAt"`
	UpdatedAt    string               `json:"updatedAt"`
	Attachments  []FeedbackAttachment `json:"attachments"`
}

type FeedbackList struct {
	Feedbacks  []Feedback `json:"feedbacks"`
	TotalCount int        `json:"totalCount"`
}

// File is an upload part.
type File struct {
	Name    string
	Content io.Reader
}

// NewLab is the lab creation form. Markdown is required, assets are optional.
type NewLab struct {
	Title     string
	ShortDesc string
	Markdown  File
	Assets    []File
}

// NewSubmission is a solution for a lab: free text, files or both.
type NewSubmission struct {
	LabID int64
	Text  string
	Files []File
}

// NewArticle is the article creation form.
type NewArticle struct {
	Title     string
	ShortDesc string
	PDF       File
}
