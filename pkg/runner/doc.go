/*
Package runner provides a line-oriented chat loop over any io.Reader/io.Writer.

It plays the role of a chat transport for a single local user: every line read
is sent to the bot as a message, every reply is rendered and written back.
When the output is a terminal, replies are rendered from Markdown with glamour;
otherwise they are written as plain text.

	r := runner.New(bot, runner.WithUserID("local"))
	err := r.Run(ctx)
*/
package runner
